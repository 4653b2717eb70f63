package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/jamiechicago312/openlinks/internal/bulk"
	"github.com/jamiechicago312/openlinks/internal/commitlog"
	"github.com/jamiechicago312/openlinks/internal/config"
	grpcclient "github.com/jamiechicago312/openlinks/internal/grpc"
	"github.com/jamiechicago312/openlinks/internal/grpc/proto"
	"github.com/jamiechicago312/openlinks/internal/log"
	"github.com/jamiechicago312/openlinks/internal/repository"
	"github.com/jamiechicago312/openlinks/internal/service"
)

// cli хранит глобальные флаги и подключение к сервису инструментов
type cli struct {
	output     string
	server     string
	dataDir    string
	backend    string
	gitRemote  string
	gitBranch  string
	dsn        string
	planSecret string
	logLevel   string

	logger  *zap.Logger
	client  proto.LinkToolsClient
	closers []func() error
}

// newRootCmd собирает дерево команд. Непустой client используется вместо
// подключения по флагам.
func newRootCmd(client proto.LinkToolsClient) *cobra.Command {
	c := &cli{client: client}

	root := &cobra.Command{
		Use:   "openlinks",
		Short: "Manage go-links stored in a git-backed data directory",
		Long: `openlinks creates, reads, updates and archives short links.

Links live as JSON files under data/links in the working tree, and every
change is committed to the configured commit log. Free-text descriptions
passed with --text are scanned for tags, UTM parameters and expiration dates.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.connect(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.output, "output", "o", outputText, "output format: text, json or yaml")
	flags.StringVar(&c.server, "server", os.Getenv("OPENLINKS_SERVER"), "gRPC address of openlinks-server; empty works on --data-dir directly")
	flags.StringVar(&c.dataDir, "data-dir", envOr("DATA_DIR", config.DefaultDataDir), "working tree that holds data/")
	flags.StringVar(&c.backend, "backend", envOr("COMMIT_LOG_BACKEND", commitlog.BackendGit), "commit log backend: git, postgres or memory")
	flags.StringVar(&c.gitRemote, "git-remote", envOr("GIT_REMOTE", config.DefaultGitRemote), "git remote to sync with")
	flags.StringVar(&c.gitBranch, "git-branch", envOr("GIT_BRANCH", config.DefaultGitBranch), "git branch to sync with")
	flags.StringVar(&c.dsn, "dsn", os.Getenv("DATABASE_DSN"), "database DSN for PostgreSQL commit log")
	flags.StringVar(&c.planSecret, "plan-secret", os.Getenv("PLAN_SECRET"), "secret for bulk plan tokens")
	flags.StringVar(&c.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	root.AddCommand(
		newCreateCmd(c),
		newReadCmd(c),
		newUpdateCmd(c),
		newDeleteCmd(c),
		newListCmd(c),
		newBulkCmd(c),
		newCleanupCmd(c),
		newResolveCmd(c),
		newExtractCmd(c),
		newStatsCmd(c),
	)
	return root
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// connect выбирает клиента: внешний, удалённый по --server или локальный над --data-dir
func (c *cli) connect(ctx context.Context) error {
	switch c.output {
	case outputText, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unknown output format %q", c.output)
	}
	if c.logger == nil {
		// stdout занят выводом команд
		c.logger = log.NewLogger(c.logLevel, "stderr")
	}
	if c.client != nil {
		return nil
	}

	if c.server != "" {
		client, err := grpcclient.Dial(c.server)
		if err != nil {
			return fmt.Errorf("connect to %s: %w", c.server, err)
		}
		c.client = client
		c.closers = append(c.closers, client.Close)
		return nil
	}

	svc, err := c.localService(ctx)
	if err != nil {
		return err
	}
	c.client = grpcclient.NewLocalClient(grpcclient.NewServer(svc, c.logger))
	return nil
}

// localService открывает хранилище в рабочем дереве и синхронизирует его с журналом
func (c *cli) localService(ctx context.Context) (*service.Service, error) {
	site, err := config.LoadSite(filepath.Join(c.dataDir, filepath.FromSlash(config.SitePath)))
	if err != nil {
		return nil, err
	}

	clog, closeLog, err := commitlog.Open(ctx, commitlog.Options{
		Backend:     c.backend,
		Dir:         c.dataDir,
		GitRemote:   c.gitRemote,
		GitBranch:   c.gitBranch,
		DatabaseDSN: c.dsn,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open commit log: %w", err)
	}
	c.closers = append(c.closers, closeLog)

	repo, err := repository.NewFileRepository(c.dataDir, clog, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open link store: %w", err)
	}
	if err := repo.Refresh(ctx); err != nil {
		c.logger.Warn("Sync failed, using local tree", zap.Error(err))
	}

	engine, err := bulk.NewEngine(repo, c.planSecret, c.logger)
	if err != nil {
		return nil, err
	}
	return service.NewService(repo, engine, site, c.logger), nil
}

func (c *cli) close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	c.closers = nil
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return errors.Join(errs...)
}

// callError убирает обёртку gRPC статуса из ошибки вызова
func callError(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok {
		return errors.New(st.Message())
	}
	return err
}
