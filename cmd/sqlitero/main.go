// Command sqlitero is a read-only query tool for SQLite3 database
// files: it understands the on-disk file format directly and answers
// .dbinfo, .tables, and a supported subset of SELECT without linking
// against libsqlite3.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kjwroe/sqlitero/internal/config"
	"github.com/kjwroe/sqlitero/internal/dberrors"
	"github.com/kjwroe/sqlitero/internal/query"
	"github.com/kjwroe/sqlitero/internal/storage"
)

var log = logrus.New()

func main() {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Missing <database path> and <command>")
		os.Exit(1)
	}
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Missing <command>")
		os.Exit(1)
	}

	dbPath := os.Args[1]
	command := os.Args[2]

	if err := run(dbPath, command); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func run(dbPath, command string) error {
	rm := config.NewResourceManager()
	defer rm.Close()

	file, err := os.Open(dbPath)
	if err != nil {
		return dberrors.New("open_database", err, map[string]interface{}{"path": dbPath})
	}
	rm.Add(file)

	headerBuf := make([]byte, 100)
	if _, err := file.ReadAt(headerBuf, 0); err != nil {
		return dberrors.New("read_file_header", err, nil)
	}
	fileHeader, err := storage.ParseFileHeader(headerBuf)
	if err != nil {
		return err
	}

	cfg := config.Default()
	pager := storage.NewPager(file, fileHeader.PageSize, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ReadTimeoutMS)*time.Millisecond)
	defer cancel()

	schema, err := storage.LoadSchema(ctx, pager, cfg)
	if err != nil {
		return err
	}

	switch {
	case command == ".dbinfo":
		return runDBInfo(pager, schema)
	case command == ".tables":
		return runTables(schema)
	case strings.HasPrefix(command, "."):
		return dberrors.New("run_command", dberrors.ErrUnknownCommand, map[string]interface{}{"command": command})
	default:
		return runSQL(ctx, pager, schema, cfg, command)
	}
}

func runDBInfo(pager *storage.Pager, schema *storage.Schema) error {
	fmt.Printf("database page size: %v\n", pager.PageSize())
	fmt.Printf("number of tables: %v\n", len(schema.Entries))
	return nil
}

func runTables(schema *storage.Schema) error {
	for _, entry := range schema.Entries {
		if entry.Type != "table" || entry.Name == "sqlite_sequence" {
			continue
		}
		fmt.Print(entry.Name)
		fmt.Print(" ")
	}
	fmt.Println()
	return nil
}

func runSQL(ctx context.Context, pager *storage.Pager, schema *storage.Schema, cfg *config.DatabaseConfig, sql string) error {
	stmt, err := query.Parse(sql)
	if err != nil {
		return err
	}

	plan := query.BuildPlan(stmt, schema)
	log.WithField("use_index", plan.UseIndex).WithField("index", plan.IndexName).Debug("execution plan chosen")

	result, err := query.Execute(ctx, pager, schema, cfg, stmt, plan)
	if err != nil {
		return err
	}

	output, err := query.FormatRows(result)
	if err != nil {
		return err
	}
	fmt.Print(output)
	return nil
}
