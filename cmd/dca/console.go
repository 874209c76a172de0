package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azerpas/bourso-desktop/internal/app"
	"github.com/azerpas/bourso-desktop/internal/auth"
	"github.com/azerpas/bourso-desktop/internal/credential"
	"github.com/azerpas/bourso-desktop/internal/job"
)

// console 是交互式入口：登录、回答验证码并逐个处理待执行任务。
type console struct {
	app *app.App
	p   *prompter
}

func newConsole(a *app.App) *console {
	return &console{app: a, p: newPrompter()}
}

// run 处理 pending；pending 为 nil 时使用当前到期的任务。
func (c *console) run(ctx context.Context, pending []job.Job) error {
	if pending == nil {
		jobs, err := c.app.Jobs().Load()
		if err != nil {
			return err
		}
		pending = job.Due(jobs, time.Now())
	}

	if len(pending) == 0 {
		fmt.Fprintln(c.p.out, "No pending jobs.")
		return nil
	}
	fmt.Fprintf(c.p.out, "%d pending job(s):\n", len(pending))
	for _, j := range pending {
		fmt.Fprintf(c.p.out, "  %s  %s, %s\n", j.ID, j.Schedule.Describe(), j.Command.Describe())
	}

	if err := c.login(ctx); err != nil {
		return err
	}

	runner := c.app.Interactive()
	for _, j := range pending {
		action, err := c.p.line(fmt.Sprintf("%s: [r]un, [s]kip, [l]ater? ", j.Command.Describe()))
		if err != nil {
			return err
		}
		switch strings.ToLower(action) {
		case "r", "run":
			if _, err := runner.RunOne(ctx, j); err != nil {
				fmt.Fprintf(c.p.out, "  failed: %v\n", err)
				continue
			}
			fmt.Fprintln(c.p.out, "  done")
		case "s", "skip":
			if _, err := c.app.Jobs().Skip(j.ID, time.Now()); err != nil {
				fmt.Fprintf(c.p.out, "  skip failed: %v\n", err)
				continue
			}
			fmt.Fprintln(c.p.out, "  skipped until next period")
		default:
			fmt.Fprintln(c.p.out, "  left pending")
		}
	}
	return nil
}

// login 使用已保存的凭证登录，缺少的部分从终端读取；登录后可选择保存密码。
func (c *console) login(ctx context.Context) error {
	if c.app.Session().State() == auth.StateAuthenticated {
		return nil
	}

	creds, err := c.app.Credentials().Load(ctx)
	if err != nil {
		return err
	}
	if !creds.HasClientID() {
		if creds.ClientID, err = c.p.line("Client ID: "); err != nil {
			return err
		}
	}
	typed := !creds.HasPassword()
	if typed {
		if creds.Password, err = c.p.secret("Password: "); err != nil {
			return err
		}
	}

	err = c.app.Login(ctx, creds.ClientID, creds.Password)
	for {
		mfaErr, ok := auth.AsMfaRequired(err)
		if !ok {
			break
		}
		code, promptErr := c.p.line(fmt.Sprintf("Enter the %s code: ", mfaErr.Challenge.Type))
		if promptErr != nil {
			return promptErr
		}
		err = c.app.SubmitMfa(ctx, mfaErr.Challenge.OtpID, code)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(c.p.out, "Logged in.")

	if typed {
		save, promptErr := c.p.confirm("Save password for unattended runs?")
		if promptErr != nil {
			return promptErr
		}
		if save {
			if err := c.app.Credentials().Save(ctx, creds); err != nil {
				return fmt.Errorf("保存凭证失败: %w", err)
			}
		} else if err := c.app.Credentials().Save(ctx, credential.Credentials{ClientID: creds.ClientID}); err != nil {
			return fmt.Errorf("保存客户号失败: %w", err)
		}
	}
	return nil
}
