package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nickyhof/ViewDB/db"
	"github.com/nickyhof/ViewDB/sql"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

const maxHistory = 1000

// CLI holds the interactive session state
type CLI struct {
	app         *app
	engine      *db.Engine
	in          io.Reader
	out         io.Writer
	history     []string
	historyFile string
}

func (a *app) newCLI() (*CLI, error) {
	_, engine, err := a.openEngine()
	if err != nil {
		return nil, err
	}

	cli := &CLI{
		app:         a,
		engine:      engine,
		in:          a.in,
		out:         a.out,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}
	cli.loadHistory()
	return cli, nil
}

func (cli *CLI) printf(color, format string, args ...any) {
	fmt.Fprintf(cli.out, "%s%s%s\n", color, fmt.Sprintf(format, args...), ResetColor)
}

func (cli *CLI) printError(err error) {
	cli.printf(ErrorColor, "✗ Error: %v", err)
}

func (cli *CLI) printBanner() {
	fmt.Fprintln(cli.out)
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("ViewDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Fprintf(cli.out, "%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(cli.out, "%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Fprintf(cli.out, "%s%s║   Git-backed SQL View Catalog         ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintf(cli.out, "%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(cli.out)
	fmt.Fprintln(cli.out, "Type .help for commands, .quit to exit")
	fmt.Fprintln(cli.out)
}

func (cli *CLI) run() {
	reader := bufio.NewReader(cli.in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			cli.printf(SuccessColor, "\nGoodbye!")
			cli.saveHistory()
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		if strings.TrimSpace(input) == "" {
			continue
		}

		// Dot commands are only recognized outside a multi-line statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if !cli.handleCommand(input) {
				cli.saveHistory()
				return
			}
			continue
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString("\n")
			continue
		}
		multiLineBuffer.Reset()

		statement := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
		if statement == "" {
			continue
		}

		cli.addToHistory(statement + ";")
		cli.execute(statement)
	}
}

func (cli *CLI) execute(statement string) {
	result, err := cli.engine.Execute(statement)
	if err != nil {
		cli.printError(err)
		return
	}
	result.Write(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}
	return fmt.Sprintf("%sviewdb (%s)>%s ", PromptColor, cli.engine.CurrentSchema(), ResetColor)
}

// handleCommand runs a dot command. It returns false when the session should
// end.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.printf(SuccessColor, "Goodbye!")
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".schemas":
		cli.execute("SHOW SCHEMAS")

	case ".tables":
		cli.execute(showIn("SHOW TABLES", parts))

	case ".views":
		cli.execute(showIn("SHOW VIEWS", parts))

	case ".sequences":
		cli.execute(showIn("SHOW SEQUENCES", parts))

	case ".use":
		if len(parts) < 2 {
			cli.printf(ErrorColor, "✗ Usage: .use <schema>")
			break
		}
		if err := cli.engine.SetSchema(parts[1]); err != nil {
			cli.printError(err)
			break
		}
		cli.printf(SuccessColor, "✓ Using schema: %s", parts[1])

	case ".explain":
		if len(parts) < 2 {
			cli.printf(ErrorColor, "✗ Usage: .explain <view>")
			break
		}
		cli.execute("EXPLAIN VIEW " + parts[1])

	case ".dump":
		script, err := cli.engine.Dump()
		if err != nil {
			cli.printError(err)
			break
		}
		fmt.Fprint(cli.out, script)

	case ".import":
		if len(parts) < 2 {
			cli.printf(ErrorColor, "✗ Usage: .import <file.sql>")
			break
		}
		if err := cli.importFile(parts[1]); err != nil {
			cli.printError(err)
		}

	case ".export":
		if len(parts) < 2 {
			cli.printf(ErrorColor, "✗ Usage: .export <path>")
			break
		}
		n, err := cli.engine.Export(context.Background(), parts[1], cli.s3Config())
		if err != nil {
			cli.printError(err)
			break
		}
		cli.printf(SuccessColor, "✓ Exported %d bytes to %s", n, parts[1])

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "ViewDB version %s\n", Version)

	default:
		cli.printf(ErrorColor, "✗ Unknown command: %s (type .help for commands)", parts[0])
	}

	return true
}

func (cli *CLI) s3Config() *db.S3Config {
	if cli.app == nil || cli.app.cfg == nil {
		return nil
	}
	return cli.app.s3Config()
}

// showIn appends the schema argument of a dot command, if any.
func showIn(statement string, parts []string) string {
	if len(parts) > 1 {
		return statement + " IN " + parts[1]
	}
	return statement
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  .help, .h          Show this help message")
	fmt.Fprintln(w, "  .quit, .exit       Exit the CLI")
	fmt.Fprintln(w, "  .schemas           List all schemas")
	fmt.Fprintln(w, "  .tables [schema]   List tables")
	fmt.Fprintln(w, "  .views [schema]    List views with their dependencies")
	fmt.Fprintln(w, "  .sequences [schema] List sequences")
	fmt.Fprintln(w, "  .use <schema>      Set the current schema")
	fmt.Fprintln(w, "  .explain <view>    Show the materialization order of a view")
	fmt.Fprintln(w, "  .dump              Print the catalog as a DDL script")
	fmt.Fprintln(w, "  .import <file>     Execute SQL statements from a file")
	fmt.Fprintln(w, "  .export <path>     Write the catalog script to a file or s3:// URL")
	fmt.Fprintln(w, "  .history           Show command history")
	fmt.Fprintln(w, "  .clear             Clear the screen")
	fmt.Fprintln(w, "  .version           Show version info")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%sSQL Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Fprintln(w, "  CREATE SCHEMA <name>;  DROP SCHEMA <name>;  SET SCHEMA <name>;")
	fmt.Fprintln(w, "  CREATE TABLE [<schema>.]<table> (<column> <type> [PRIMARY KEY], ...);")
	fmt.Fprintln(w, "  ALTER TABLE <table> ADD|DROP [COLUMN] ... | RENAME COLUMN <a> TO <b>;")
	fmt.Fprintln(w, "  SET TABLE <table> READONLY TRUE|FALSE;")
	fmt.Fprintln(w, "  CREATE SEQUENCE <name> [START WITH n] [INCREMENT BY n];")
	fmt.Fprintln(w, "  CREATE [OR REPLACE] VIEW <name> [(<column>, ...)] AS SELECT ...;")
	fmt.Fprintln(w, "  ALTER VIEW <name> AS SELECT ...;  DROP VIEW [IF EXISTS] <name>;")
	fmt.Fprintln(w, "  DESCRIBE <name>;  SHOW SCHEMAS|TABLES|VIEWS|SEQUENCES;  EXPLAIN VIEW <name>;")
	fmt.Fprintln(w)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > maxHistory {
		cli.history = cli.history[len(cli.history)-maxHistory:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".viewdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > maxHistory {
		start = len(cli.history) - maxHistory
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile executes the statements of a SQL file, reporting each one and
// carrying on past failures.
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements, err := sql.SplitStatements(string(data))
	if err != nil {
		return fmt.Errorf("failed to split %s: %w", filename, err)
	}

	successCount := 0
	errorCount := 0

	for i, statement := range statements {
		result, err := cli.engine.Execute(statement)
		if err != nil {
			cli.printf(ErrorColor, "[%d] ✗ %s", i+1, truncate(statement, 50))
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.CommitResult:
			cli.printf(SuccessColor, "[%d] ✓ %s (%s)", i+1, truncate(statement, 50), r.Summary())
		case db.QueryResult:
			cli.printf(SuccessColor, "[%d] ✓ %s (%d rows)", i+1, truncate(statement, 50), r.RecordsRead)
		default:
			cli.printf(SuccessColor, "[%d] ✓ %s", i+1, truncate(statement, 50))
		}
	}

	fmt.Fprintln(cli.out)
	cli.printf(SuccessColor, "✓ Import complete: %d succeeded, %d failed", successCount, errorCount)

	if errorCount > 0 {
		return fmt.Errorf("%d of %d statements failed", errorCount, len(statements))
	}
	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
