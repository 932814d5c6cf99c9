package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JonMunkholm/markupload/internal/admin"
	"github.com/JonMunkholm/markupload/internal/auth"
	"github.com/JonMunkholm/markupload/internal/core"
	"github.com/JonMunkholm/markupload/internal/store"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	store    store.Store
	service  *core.Service
	verifier *auth.Verifier
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  createexam  -title TITLE -max MAX_MARKS           - create an exam")
	fmt.Fprintln(cli.out, "  addstudents -exam EXAM_ID -file ROSTER.csv         - enroll a class list")
	fmt.Fprintln(cli.out, "  upload      -exam EXAM_ID -examiner ID -file MARKS.csv - apply a marks file")
	fmt.Fprintln(cli.out, "  results     -exam EXAM_ID                          - print stored results")
	fmt.Fprintln(cli.out, "  token       -user ID -role ROLE [-email E] [-ttl 1h] - sign a dev access token")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "createexam":
		fs := flag.NewFlagSet("createexam", flag.ContinueOnError)
		title := fs.String("title", "", "Exam title")
		maxMarks := fs.Int("max", 100, "Maximum marks")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *title == "" || *maxMarks <= 0 {
			fs.Usage()
			return errHelp
		}
		exam, err := cli.store.CreateExam(ctx, *title, *maxMarks)
		if err != nil {
			return err
		}
		return cli.printJSON(exam)

	case "addstudents":
		fs := flag.NewFlagSet("addstudents", flag.ContinueOnError)
		examID := fs.String("exam", "", "Exam id")
		file := fs.String("file", "", "Class list CSV with enrollment_no and optional name columns")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *examID == "" || *file == "" {
			fs.Usage()
			return errHelp
		}
		if _, err := cli.store.GetExam(ctx, *examID); err != nil {
			return err
		}
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		res, err := admin.ImportRoster(ctx, cli.store, *examID, f)
		if err != nil {
			return err
		}
		return cli.printJSON(res)

	case "upload":
		fs := flag.NewFlagSet("upload", flag.ContinueOnError)
		examID := fs.String("exam", "", "Exam id")
		examiner := fs.String("examiner", "", "Examiner id recorded on each result")
		file := fs.String("file", "", "Marks CSV")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *examID == "" || *examiner == "" || *file == "" {
			fs.Usage()
			return errHelp
		}
		return cli.upload(ctx, *examID, *examiner, *file)

	case "results":
		fs := flag.NewFlagSet("results", flag.ContinueOnError)
		examID := fs.String("exam", "", "Exam id")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *examID == "" {
			fs.Usage()
			return errHelp
		}
		results, err := cli.service.ExamResults(ctx, *examID)
		if err != nil {
			return err
		}
		return cli.printJSON(results)

	case "token":
		fs := flag.NewFlagSet("token", flag.ContinueOnError)
		user := fs.String("user", "", "Subject (examiner id)")
		role := fs.String("role", "teacher", "Application role")
		email := fs.String("email", "", "Email claim")
		ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		if *user == "" {
			fs.Usage()
			return errHelp
		}
		token, err := cli.verifier.Sign(auth.Identity{UserID: *user, Email: *email, Role: *role}, *ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, token)
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

// upload runs a marks file synchronously and prints the batch status.
func (cli *commandLine) upload(ctx context.Context, examID, examiner, file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	exam, err := cli.store.GetExam(ctx, examID)
	if err != nil {
		return err
	}
	students, err := cli.store.ListStudents(ctx, exam.ID)
	if err != nil {
		return err
	}

	status, err := cli.service.UploadMarks(ctx, core.UploadRequest{
		FileName:   file,
		Exam:       exam,
		Students:   students,
		ExaminerID: examiner,
		Data:       data,
	})
	if err != nil {
		return errors.New(core.FormatUserError(err))
	}
	return cli.printJSON(status)
}

func (cli *commandLine) printJSON(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
