package db

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nickyhof/ViewDB/catalog"
	"github.com/nickyhof/ViewDB/core"
	"github.com/nickyhof/ViewDB/ps"
	"github.com/nickyhof/ViewDB/sql"
)

// Engine executes catalog statements for one session. Execute is safe for
// concurrent use; calling SetSchema directly is not.
type Engine struct {
	*catalog.Session
}

func NewEngine(session *catalog.Session) *Engine {
	return &Engine{Session: session}
}

// readOnly reports whether a statement only reads the catalog.
func readOnly(statementType sql.StatementType) bool {
	switch statementType {
	case sql.DescribeStatementType,
		sql.ShowSchemasStatementType,
		sql.ShowTablesStatementType,
		sql.ShowViewsStatementType,
		sql.ShowSequencesStatementType,
		sql.ExplainViewStatementType:
		return true
	}
	return false
}

func (engine *Engine) Execute(query string) (Result, error) {
	parser := sql.NewParser(query)
	statement, err := parser.Parse()
	if err != nil {
		return nil, err
	}

	if statement.Type() == sql.SelectStatementType {
		return nil, core.Errorf(core.CodeUnsupported, "queries are not executed here; define a view instead")
	}

	c := engine.Catalog()
	if readOnly(statement.Type()) {
		c.RLock()
		defer c.RUnlock()
	} else {
		c.Lock()
		defer c.Unlock()
	}

	switch statement.Type() {
	case sql.CreateViewStatementType:
		return engine.executeCreateViewStatement(statement.(sql.CreateViewStatement))
	case sql.AlterViewStatementType:
		return engine.executeAlterViewStatement(statement.(sql.AlterViewStatement))
	case sql.DropViewStatementType:
		return engine.executeDropViewStatement(statement.(sql.DropViewStatement))
	case sql.CreateSchemaStatementType:
		return engine.executeCreateSchemaStatement(statement.(sql.CreateSchemaStatement))
	case sql.DropSchemaStatementType:
		return engine.executeDropSchemaStatement(statement.(sql.DropSchemaStatement))
	case sql.SetSchemaStatementType:
		return engine.executeSetSchemaStatement(statement.(sql.SetSchemaStatement))
	case sql.CreateTableStatementType:
		return engine.executeCreateTableStatement(statement.(sql.CreateTableStatement))
	case sql.DropTableStatementType:
		return engine.executeDropTableStatement(statement.(sql.DropTableStatement))
	case sql.AlterTableStatementType:
		return engine.executeAlterTableStatement(statement.(sql.AlterTableStatement))
	case sql.SetTableReadOnlyStatementType:
		return engine.executeSetTableReadOnlyStatement(statement.(sql.SetTableReadOnlyStatement))
	case sql.CreateSequenceStatementType:
		return engine.executeCreateSequenceStatement(statement.(sql.CreateSequenceStatement))
	case sql.DropSequenceStatementType:
		return engine.executeDropSequenceStatement(statement.(sql.DropSequenceStatement))
	case sql.DescribeStatementType:
		return engine.executeDescribeStatement(statement.(sql.DescribeStatement))
	case sql.ShowSchemasStatementType:
		return engine.executeShowSchemasStatement()
	case sql.ShowTablesStatementType:
		return engine.executeShowTablesStatement(statement.(sql.ShowTablesStatement))
	case sql.ShowViewsStatementType:
		return engine.executeShowViewsStatement(statement.(sql.ShowViewsStatement))
	case sql.ShowSequencesStatementType:
		return engine.executeShowSequencesStatement(statement.(sql.ShowSequencesStatement))
	case sql.ExplainViewStatementType:
		return engine.executeExplainViewStatement(statement.(sql.ExplainViewStatement))
	default:
		return nil, core.Errorf(core.CodeUnsupported, "unsupported statement type: %v", statement.Type())
	}
}

// ExecuteScript runs every statement of a script in order and stops at the
// first failure. Results of the statements that ran are returned with the
// error.
func (engine *Engine) ExecuteScript(script string) ([]Result, error) {
	statements, err := sql.SplitStatements(script)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i, statement := range statements {
		result, err := engine.Execute(statement)
		if err != nil {
			return results, errors.Wrapf(err, "statement %d", i+1)
		}
		results = append(results, result)
	}
	return results, nil
}

func (engine *Engine) latestTransaction() ps.Transaction {
	if persistence := engine.Catalog().Persistence(); persistence != nil {
		return persistence.LatestTransaction()
	}
	return ps.Transaction{}
}

func (engine *Engine) schemaOr(schema string) string {
	if schema == "" {
		return engine.CurrentSchema()
	}
	return schema
}

func (engine *Engine) executeCreateViewStatement(statement sql.CreateViewStatement) (CommitResult, error) {
	startTime := time.Now()

	_, replacing := engine.Catalog().View(engine.schemaOr(statement.Schema), statement.View)
	_, txn, err := engine.CreateView(statement.Schema, statement.View, statement.Definition, statement.Columns, statement.OrReplace)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Transaction:      txn,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}
	if replacing {
		result.ViewsReplaced = 1
	} else {
		result.ViewsCreated = 1
	}
	return result, nil
}

func (engine *Engine) executeAlterViewStatement(statement sql.AlterViewStatement) (CommitResult, error) {
	startTime := time.Now()

	_, txn, err := engine.AlterView(statement.Schema, statement.View, statement.Definition, nil)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		ViewsReplaced:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropViewStatement(statement sql.DropViewStatement) (CommitResult, error) {
	startTime := time.Now()

	_, exists := engine.Catalog().View(engine.schemaOr(statement.Schema), statement.View)
	txn, err := engine.DropView(statement.Schema, statement.View, statement.IfExists)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Transaction:      txn,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}
	if exists {
		result.ViewsDeleted = 1
	}
	return result, nil
}

func (engine *Engine) executeCreateSchemaStatement(statement sql.CreateSchemaStatement) (CommitResult, error) {
	startTime := time.Now()

	txn, err := engine.CreateSchema(statement.Schema)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		SchemasCreated:   1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropSchemaStatement(statement sql.DropSchemaStatement) (CommitResult, error) {
	startTime := time.Now()

	exists := engine.Catalog().HasSchema(statement.Schema)
	txn, err := engine.DropSchema(statement.Schema, statement.IfExists)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Transaction:      txn,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}
	if exists {
		result.SchemasDeleted = 1
	}
	return result, nil
}

func (engine *Engine) executeSetSchemaStatement(statement sql.SetSchemaStatement) (CommitResult, error) {
	startTime := time.Now()

	if err := engine.SetSchema(statement.Schema); err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeCreateTableStatement(statement sql.CreateTableStatement) (CommitResult, error) {
	startTime := time.Now()

	_, txn, err := engine.CreateTable(statement.Schema, statement.Table, statement.Columns)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesCreated:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropTableStatement(statement sql.DropTableStatement) (CommitResult, error) {
	startTime := time.Now()

	_, exists := engine.Catalog().Table(engine.schemaOr(statement.Schema), statement.Table)
	txn, err := engine.DropTable(statement.Schema, statement.Table, statement.IfExists)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Transaction:      txn,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}
	if exists {
		result.TablesDeleted = 1
	}
	return result, nil
}

func (engine *Engine) executeAlterTableStatement(statement sql.AlterTableStatement) (CommitResult, error) {
	startTime := time.Now()

	var txn ps.Transaction
	var err error
	switch statement.Action {
	case sql.AddColumnAction:
		txn, err = engine.AddColumn(statement.Schema, statement.Table, statement.Column)
	case sql.DropColumnAction:
		txn, err = engine.DropColumn(statement.Schema, statement.Table, statement.Column.Name)
	case sql.RenameColumnAction:
		txn, err = engine.RenameColumn(statement.Schema, statement.Table, statement.Column.Name, statement.NewColumnName)
	default:
		err = core.Errorf(core.CodeUnsupported, "unsupported ALTER TABLE action: %d", statement.Action)
	}
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesAltered:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeSetTableReadOnlyStatement(statement sql.SetTableReadOnlyStatement) (CommitResult, error) {
	startTime := time.Now()

	txn, err := engine.SetTableReadOnly(statement.Schema, statement.Table, statement.ReadOnly)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		TablesAltered:    1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeCreateSequenceStatement(statement sql.CreateSequenceStatement) (CommitResult, error) {
	startTime := time.Now()

	_, txn, err := engine.CreateSequence(statement.Schema, statement.Sequence, statement.Start, statement.Increment)
	if err != nil {
		return CommitResult{}, err
	}

	return CommitResult{
		Transaction:      txn,
		SequencesCreated: 1,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeDropSequenceStatement(statement sql.DropSequenceStatement) (CommitResult, error) {
	startTime := time.Now()

	_, exists := engine.Catalog().Sequence(engine.schemaOr(statement.Schema), statement.Sequence)
	txn, err := engine.DropSequence(statement.Schema, statement.Sequence, statement.IfExists)
	if err != nil {
		return CommitResult{}, err
	}

	result := CommitResult{
		Transaction:      txn,
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}
	if exists {
		result.SequencesDeleted = 1
	}
	return result, nil
}

func (engine *Engine) executeDescribeStatement(statement sql.DescribeStatement) (QueryResult, error) {
	startTime := time.Now()

	schema := engine.schemaOr(statement.Schema)
	relation, ok := engine.Catalog().Relation(schema, statement.Name)
	if !ok {
		return QueryResult{}, core.Errorf(core.CodeNotFound, "table or view %s does not exist", core.Key(schema, statement.Name))
	}

	var data [][]string
	for _, column := range relation.RelationColumns() {
		primaryKey := "NO"
		if column.PrimaryKey {
			primaryKey = "YES"
		}
		data = append(data, []string{column.Name, column.Type.String(), primaryKey})
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"Column", "Type", "PrimaryKey"},
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     1,
	}, nil
}

func (engine *Engine) executeShowSchemasStatement() (QueryResult, error) {
	startTime := time.Now()

	schemas := engine.Catalog().Schemas()
	data := make([][]string, len(schemas))
	for i, schema := range schemas {
		data[i] = []string{schema}
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"name"},
		Data:             data,
		RecordsRead:      len(schemas),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(schemas),
	}, nil
}

func (engine *Engine) checkSchema(schema string) error {
	if !engine.Catalog().HasSchema(schema) {
		return core.Errorf(core.CodeNotFound, "schema %s does not exist", schema)
	}
	return nil
}

func (engine *Engine) executeShowTablesStatement(statement sql.ShowTablesStatement) (QueryResult, error) {
	startTime := time.Now()

	schema := engine.schemaOr(statement.Schema)
	if err := engine.checkSchema(schema); err != nil {
		return QueryResult{}, err
	}

	tables := engine.Catalog().Tables(schema)
	data := make([][]string, len(tables))
	for i, table := range tables {
		data[i] = []string{table.Name.Name, strconv.Itoa(len(table.Columns)), strconv.FormatBool(table.ReadOnly)}
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"name", "columns", "read_only"},
		Data:             data,
		RecordsRead:      len(tables),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(tables),
	}, nil
}

func (engine *Engine) executeShowViewsStatement(statement sql.ShowViewsStatement) (QueryResult, error) {
	startTime := time.Now()

	schema := engine.schemaOr(statement.Schema)
	if err := engine.checkSchema(schema); err != nil {
		return QueryResult{}, err
	}

	views := engine.Catalog().Views(schema)
	data := make([][]string, len(views))
	for i, v := range views {
		data[i] = []string{v.RelationName().Name, v.State().String(), strings.Join(v.DependsOn(), ", "), v.Statement()}
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"name", "state", "depends_on", "statement"},
		Data:             data,
		RecordsRead:      len(views),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(views),
	}, nil
}

func (engine *Engine) executeShowSequencesStatement(statement sql.ShowSequencesStatement) (QueryResult, error) {
	startTime := time.Now()

	schema := engine.schemaOr(statement.Schema)
	if err := engine.checkSchema(schema); err != nil {
		return QueryResult{}, err
	}

	sequences := engine.Catalog().Sequences(schema)
	data := make([][]string, len(sequences))
	for i, sequence := range sequences {
		data[i] = []string{sequence.Name.Name, strconv.FormatInt(sequence.Start, 10), strconv.FormatInt(sequence.Increment, 10)}
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"name", "start", "increment"},
		Data:             data,
		RecordsRead:      len(sequences),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(sequences),
	}, nil
}

// executeExplainViewStatement lists the subqueries of a view in the order
// they are materialized. The view's own select comes last.
func (engine *Engine) executeExplainViewStatement(statement sql.ExplainViewStatement) (QueryResult, error) {
	startTime := time.Now()

	schema := engine.schemaOr(statement.Schema)
	v, ok := engine.Catalog().View(schema, statement.View)
	if !ok {
		return QueryResult{}, core.Errorf(core.CodeNotFound, "view %s does not exist", core.Key(schema, statement.View))
	}

	subqueries := v.SubQueries()
	data := make([][]string, len(subqueries))
	for i, subquery := range subqueries {
		source := "subquery"
		if subquery.View != nil {
			source = subquery.View.RelationName().String()
		}

		var columns []string
		for _, column := range subquery.Select.ResultColumns {
			columns = append(columns, column.Name)
		}

		data[i] = []string{
			strconv.Itoa(subquery.Order),
			strconv.Itoa(subquery.Level),
			source,
			strings.Join(columns, ", "),
		}
	}

	return QueryResult{
		Transaction:      engine.latestTransaction(),
		Columns:          []string{"order", "level", "source", "columns"},
		Data:             data,
		RecordsRead:      len(data),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
		ExecutionOps:     len(data),
	}, nil
}
