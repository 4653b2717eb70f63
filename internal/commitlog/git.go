package commitlog

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// GitLog реализует CommitLog поверх git-репозитория в dir.
// Синхронизация: fetch + reset --hard + clean; фиксация: add, commit, push.
// Отклонённый push (non-fast-forward) возвращается как Rejected.
type GitLog struct {
	dir    string
	remote string
	branch string
	root   string
	logger *zap.Logger
}

// NewGitLog создаёт журнал для рабочего дерева dir. Пустой remote означает
// локальный репозиторий без публикации.
func NewGitLog(dir, remote, branch string, logger *zap.Logger) *GitLog {
	return &GitLog{
		dir:    dir,
		remote: remote,
		branch: branch,
		root:   DefaultRoot,
		logger: logger,
	}
}

// gitError содержит вывод git при неудачном вызове
type gitError struct {
	args   []string
	stderr string
	err    error
}

func (e *gitError) Error() string {
	return fmt.Sprintf("git %s: %v: %s", strings.Join(e.args, " "), e.err, strings.TrimSpace(e.stderr))
}

func (e *gitError) Unwrap() error {
	return e.err
}

func (g *GitLog) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &gitError{args: args, stderr: stderr.String(), err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (g *GitLog) head(ctx context.Context) (string, error) {
	rev, err := g.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		// Репозиторий без коммитов
		if strings.Contains(err.Error(), "unknown revision") || strings.Contains(err.Error(), "ambiguous argument") {
			return "", nil
		}
		return "", err
	}
	return rev, nil
}

// SyncToLatest приводит рабочее дерево к состоянию удалённой ветки
func (g *GitLog) SyncToLatest(ctx context.Context) (State, error) {
	if g.remote != "" {
		if _, err := g.run(ctx, "fetch", "--quiet", g.remote, g.branch); err != nil {
			return State{}, fmt.Errorf("fetch: %w", err)
		}
		if _, err := g.run(ctx, "reset", "--hard", "--quiet", g.remote+"/"+g.branch); err != nil {
			return State{}, fmt.Errorf("reset: %w", err)
		}
	} else if rev, err := g.head(ctx); err != nil {
		return State{}, err
	} else if rev != "" {
		if _, err := g.run(ctx, "reset", "--hard", "--quiet", "HEAD"); err != nil {
			return State{}, fmt.Errorf("reset: %w", err)
		}
	}
	if _, err := g.run(ctx, "clean", "-fdq", "--", g.root); err != nil {
		return State{}, fmt.Errorf("clean: %w", err)
	}

	rev, err := g.head(ctx)
	if err != nil {
		return State{}, err
	}
	g.logger.Debug("Synced to latest", zap.String("revision", rev))
	return State{Revision: rev}, nil
}

// Commit фиксирует пути и публикует их в удалённую ветку
func (g *GitLog) Commit(ctx context.Context, paths []string, message string) (CommitResult, error) {
	if err := checkPaths(g.root, paths); err != nil {
		return CommitResult{}, err
	}

	addArgs := append([]string{"add", "-A", "--"}, paths...)
	if _, err := g.run(ctx, addArgs...); err != nil {
		return CommitResult{}, fmt.Errorf("add: %w", err)
	}

	// Нечего фиксировать: изменения уже совпадают с HEAD
	statusArgs := append([]string{"status", "--porcelain", "--"}, paths...)
	status, err := g.run(ctx, statusArgs...)
	if err != nil {
		return CommitResult{}, fmt.Errorf("status: %w", err)
	}
	if status == "" {
		rev, err := g.head(ctx)
		if err != nil {
			return CommitResult{}, err
		}
		return CommitResult{Status: Committed, Revision: rev}, nil
	}

	if _, err := g.run(ctx, "commit", "--quiet", "-m", message); err != nil {
		return CommitResult{}, fmt.Errorf("commit: %w", err)
	}
	rev, err := g.head(ctx)
	if err != nil {
		return CommitResult{}, err
	}

	if g.remote != "" {
		if _, err := g.run(ctx, "push", "--quiet", g.remote, "HEAD:"+g.branch); err != nil {
			if isRejectedPush(err) {
				g.logger.Info("Push rejected", zap.String("revision", rev), zap.Error(err))
				return CommitResult{Status: Rejected, Revision: rev}, nil
			}
			return CommitResult{}, fmt.Errorf("push: %w", err)
		}
	}
	return CommitResult{Status: Committed, Revision: rev}, nil
}

// Ping проверяет, что dir - рабочее дерево git
func (g *GitLog) Ping(ctx context.Context) error {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return err
	}
	if out != "true" {
		return fmt.Errorf("%s is not a git work tree", g.dir)
	}
	return nil
}

func isRejectedPush(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"[rejected]", "non-fast-forward", "fetch first", "Updates were rejected"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
