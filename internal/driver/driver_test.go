package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frherrer/shellspec/internal/domain"
	"github.com/frherrer/shellspec/internal/driver"
)

func batchStmt() *domain.Statement {
	return &domain.Statement{Kind: domain.KindShell}
}

func interactiveStmt(script ...domain.Interaction) *domain.Statement {
	return &domain.Statement{Kind: domain.KindShell, Script: script}
}

var _ = Describe("Driver", func() {
	var workdir string

	BeforeEach(func() {
		var err error
		workdir, err = os.MkdirTemp("", "driver-test-")
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(workdir) })
	})

	newDriver := func(opts driver.Options) *driver.Driver {
		if opts.ShellTimeout == 0 {
			opts.ShellTimeout = 5 * time.Second
		}
		return driver.New(opts)
	}

	Describe("batch mode", func() {
		It("should capture stdout and report exit 0", func() {
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), batchStmt(), "echo", []string{"hello"}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.ExitCode).To(Equal(0))
			Expect(result.Stdout).To(Equal("hello\n"))
			Expect(result.Stderr).To(BeEmpty())
			Expect(result.Mode).To(Equal(domain.Batch))
		})

		It("should capture stderr separately and keep the exit code", func() {
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), batchStmt(), "sh", []string{"-c", "echo oops 1>&2; exit 3"}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.ExitCode).To(Equal(3))
			Expect(result.Stdout).To(BeEmpty())
			Expect(result.Stderr).To(Equal("oops\n"))
		})

		It("should run the child in the working directory", func() {
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), batchStmt(), "pwd", nil, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Stdout).To(ContainSubstring(filepath.Base(workdir)))
		})

		It("should pass extra environment variables to the child", func() {
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), batchStmt(), "sh", []string{"-c", "echo $GREETING"}, workdir,
				map[string]string{"GREETING": "bonjour"})
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Stdout).To(Equal("bonjour\n"))
		})

		It("should fail with a timeout when the child runs too long", func() {
			d := newDriver(driver.Options{ShellTimeout: 300 * time.Millisecond})
			start := time.Now()
			_, err := d.Run(context.Background(), batchStmt(), "sleep", []string{"10"}, workdir, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, driver.ErrTimeout)).To(BeTrue())
			Expect(time.Since(start)).To(BeNumerically("<", 3*time.Second))
		})

		It("should fail when the executable does not exist", func() {
			d := newDriver(driver.Options{})
			_, err := d.Run(context.Background(), batchStmt(), "no-such-command-xyz", nil, workdir, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, driver.ErrTimeout)).To(BeFalse())
		})
	})

	Describe("command resolution", func() {
		It("should replace an aliased name", func() {
			d := newDriver(driver.Options{Aliases: map[string]string{"greet": "echo"}})
			result, err := d.Run(context.Background(), batchStmt(), "greet", []string{"hi"}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Stdout).To(Equal("hi\n"))
		})

		It("should resolve a relative command against the spec directory", func() {
			specDir, err := os.MkdirTemp("", "spec-dir-")
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() { os.RemoveAll(specDir) })

			script := filepath.Join(specDir, "hello.sh")
			Expect(os.WriteFile(script, []byte("#!/bin/sh\necho from-script\n"), 0o755)).To(Succeed())

			d := newDriver(driver.Options{SpecDir: specDir})
			result, err := d.Run(context.Background(), batchStmt(), "./hello.sh", nil, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Stdout).To(Equal("from-script\n"))
		})

		It("should resolve a relative alias against the alias base directory", func() {
			baseDir, err := os.MkdirTemp("", "alias-base-")
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(func() { os.RemoveAll(baseDir) })

			script := filepath.Join(baseDir, "tool.sh")
			Expect(os.WriteFile(script, []byte("#!/bin/sh\necho from-alias\n"), 0o755)).To(Succeed())

			d := newDriver(driver.Options{
				Aliases:      map[string]string{"tool": "./tool.sh"},
				AliasBaseDir: baseDir,
			})
			result, err := d.Run(context.Background(), batchStmt(), "tool", nil, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Stdout).To(Equal("from-alias\n"))
		})
	})

	Describe("interactive mode", func() {
		It("should give the child a tty", func() {
			stmt := interactiveStmt(
				domain.Interaction{Kind: domain.Expect, Text: "is-a-tty"},
			)
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), stmt, "sh",
				[]string{"-c", `[ -t 0 ] && echo is-a-tty || echo no-tty`}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Mode).To(Equal(domain.Interactive))
			Expect(result.Stdout).To(ContainSubstring("is-a-tty"))
		})

		It("should drive an expect/send conversation", func() {
			stmt := interactiveStmt(
				domain.Interaction{Kind: domain.Expect, Text: "Name?"},
				domain.Interaction{Kind: domain.Send, Text: "Ada"},
				domain.Interaction{Kind: domain.Expect, Text: "Hi Ada"},
			)
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), stmt, "sh",
				[]string{"-c", `printf 'Name? '; read name; echo "Hi $name"`}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.ExitCode).To(Equal(0))
			Expect(result.Stdout).To(ContainSubstring("Name?"))
			Expect(result.Stdout).To(ContainSubstring("Hi Ada"))
			Expect(result.Stderr).To(BeEmpty())
		})

		It("should time out an expect step that never matches", func() {
			stmt := interactiveStmt(
				domain.Interaction{Kind: domain.Expect, Text: "never-printed"},
			)
			d := newDriver(driver.Options{
				ShellTimeout:  5 * time.Second,
				ExpectTimeout: 300 * time.Millisecond,
			})
			result, err := d.Run(context.Background(), stmt, "sh",
				[]string{"-c", "echo something-else; sleep 10"}, workdir, nil)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, driver.ErrTimeout)).To(BeTrue())
			// The transcript so far is kept for diagnostics.
			Expect(result.Stdout).To(ContainSubstring("something-else"))
		})

		It("should report a non-zero exit after the script completes", func() {
			stmt := interactiveStmt(
				domain.Interaction{Kind: domain.Expect, Text: "bye"},
			)
			d := newDriver(driver.Options{})
			result, err := d.Run(context.Background(), stmt, "sh",
				[]string{"-c", "echo bye; exit 7"}, workdir, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(result.ExitCode).To(Equal(7))
		})
	})
})
