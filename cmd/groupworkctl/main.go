// groupworkctl runs maintenance tasks against the group-work database.
//
//	groupworkctl purge-cohorts COURSE...
//	groupworkctl fix-cohorts COURSE...
//	groupworkctl remove-uploads --filename NAME [--dry-run | --yes]
//
// Connection and storage settings default to the GROUPWORK_* environment
// variables the server reads and can be overridden with flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dalemusser/groupwork/internal/app/bootstrap"
	"github.com/dalemusser/groupwork/internal/app/store/audit"
	cohortstore "github.com/dalemusser/groupwork/internal/app/store/cohorts"
	"github.com/dalemusser/groupwork/internal/app/system/auditlog"
	"github.com/dalemusser/groupwork/internal/app/system/docstore"
	"github.com/dalemusser/groupwork/internal/app/system/timeouts"
	"github.com/dalemusser/groupwork/internal/app/workflow/cascade"
	"github.com/dalemusser/groupwork/internal/app/workflow/maintenance"
	"github.com/dalemusser/groupwork/internal/domain/models"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	cmdPurgeCohorts  = "purge-cohorts"
	cmdFixCohorts    = "fix-cohorts"
	cmdRemoveUploads = "remove-uploads"
)

var errUsage = errors.New("usage: groupworkctl purge-cohorts|fix-cohorts|remove-uploads [flags] [COURSE...]")

// settings mirrors the subset of the server configuration the tasks need.
type settings struct {
	MongoURI      string
	MongoDatabase string
	StorageType   string
	LocalPath     string
	S3Region      string
	S3Bucket      string
	S3Prefix      string
}

type command struct {
	Name     string
	Courses  []string
	Filename string
	DryRun   bool
	Settings settings
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Getenv, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, out io.Writer) error {
	cmd, err := parse(args, getenv, out)
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	timeouts.ConfigureFromEnv(bootstrap.EnvPrefix + "_")

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	deps, err := bootstrap.ConnectDB(connectCtx, nil, bootstrap.AppConfig{
		MongoURI:         cmd.Settings.MongoURI,
		MongoDatabase:    cmd.Settings.MongoDatabase,
		MongoMaxPoolSize: 10,
	}, logger)
	if err != nil {
		return err
	}
	defer deps.GroupworkMongoClient.Disconnect(context.Background())

	docs, err := docstore.New(connectCtx, docstore.Config{
		Type:      cmd.Settings.StorageType,
		LocalPath: cmd.Settings.LocalPath,
		S3Region:  cmd.Settings.S3Region,
		S3Bucket:  cmd.Settings.S3Bucket,
		S3Prefix:  cmd.Settings.S3Prefix,
	})
	if err != nil {
		return err
	}

	db := deps.GroupworkMongoDatabase
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{Admin: "all", Cohort: "all", Grades: "off"})
	engine := cascade.New(db, cohortstore.New(db), docs, auditLog, logger)
	tasks := maintenance.New(db, engine, auditLog, logger)

	taskCtx, cancelTask := context.WithTimeout(ctx, timeouts.Batch())
	defer cancelTask()
	return execute(taskCtx, tasks, cmd, out)
}

// parse reads the command name, its flags and positional arguments.
func parse(args []string, getenv func(string) string, out io.Writer) (command, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return command{}, errUsage
	}
	cmd := command{Name: args[0]}
	switch cmd.Name {
	case cmdPurgeCohorts, cmdFixCohorts, cmdRemoveUploads:
	default:
		return command{}, fmt.Errorf("unknown command %q: %w", cmd.Name, errUsage)
	}

	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(bootstrap.EnvPrefix + "_" + key)); v != "" {
			return v
		}
		return def
	}

	fs := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cmd.Settings.MongoURI, "mongo-uri", env("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	fs.StringVar(&cmd.Settings.MongoDatabase, "mongo-database", env("MONGO_DATABASE", "groupwork"), "MongoDB database name")
	fs.StringVar(&cmd.Settings.StorageType, "storage-type", env("STORAGE_TYPE", docstore.TypeLocal), "document storage backend: local or s3")
	fs.StringVar(&cmd.Settings.LocalPath, "storage-local-path", env("STORAGE_LOCAL_PATH", "./media"), "local media root")
	fs.StringVar(&cmd.Settings.S3Region, "storage-s3-region", env("STORAGE_S3_REGION", ""), "AWS region for S3")
	fs.StringVar(&cmd.Settings.S3Bucket, "storage-s3-bucket", env("STORAGE_S3_BUCKET", ""), "S3 bucket name")
	fs.StringVar(&cmd.Settings.S3Prefix, "storage-s3-prefix", env("STORAGE_S3_PREFIX", ""), "S3 key prefix")

	var yes bool
	if cmd.Name == cmdRemoveUploads {
		fs.StringVar(&cmd.Filename, "filename", "", "document file name to remove")
		fs.BoolVar(&cmd.DryRun, "dry-run", false, "list matching submissions without deleting")
		fs.BoolVarP(&yes, "yes", "y", false, "delete without a dry run")
	}

	if err := fs.Parse(args[1:]); err != nil {
		return command{}, err
	}

	switch cmd.Name {
	case cmdRemoveUploads:
		if strings.TrimSpace(cmd.Filename) == "" {
			return command{}, errors.New("remove-uploads requires --filename")
		}
		if fs.NArg() > 0 {
			return command{}, fmt.Errorf("remove-uploads takes no arguments, got %q", fs.Args())
		}
		if !yes {
			cmd.DryRun = true
		}
	default:
		if fs.NArg() == 0 {
			return command{}, fmt.Errorf("%s requires at least one course id", cmd.Name)
		}
		cmd.Courses = fs.Args()
	}
	return cmd, nil
}

// maintainer is the subset of maintenance.Tasks the commands call.
type maintainer interface {
	PurgeCohorts(ctx context.Context, courses []string) ([]models.Cohort, error)
	FixCohorts(ctx context.Context, courses []string) (int, error)
	RemoveUploads(ctx context.Context, filename string, dryRun bool) ([]models.Submission, error)
}

func execute(ctx context.Context, tasks maintainer, cmd command, out io.Writer) error {
	switch cmd.Name {
	case cmdPurgeCohorts:
		purged, err := tasks.PurgeCohorts(ctx, cmd.Courses)
		for _, c := range purged {
			fmt.Fprintf(out, "deleted cohort %d %q in %s\n", c.ID, c.Name, c.CourseID)
		}
		fmt.Fprintf(out, "%d cohorts purged\n", len(purged))
		return err

	case cmdFixCohorts:
		n, err := tasks.FixCohorts(ctx, cmd.Courses)
		fmt.Fprintf(out, "%d cohort members restored\n", n)
		return err

	case cmdRemoveUploads:
		subs, err := tasks.RemoveUploads(ctx, cmd.Filename, cmd.DryRun)
		verb := "removed"
		if cmd.DryRun {
			verb = "would remove"
		}
		for _, s := range subs {
			fmt.Fprintf(out, "%s submission %d (workgroup %d, user %d)\n", verb, s.ID, s.WorkgroupID, s.UserID)
		}
		fmt.Fprintf(out, "%d submissions %s\n", len(subs), verb)
		if cmd.DryRun && len(subs) > 0 {
			fmt.Fprintln(out, "re-run with --yes to delete")
		}
		return err
	}
	return errUsage
}
