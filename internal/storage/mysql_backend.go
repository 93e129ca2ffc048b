package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// attrTable maps an attribute onto the gk_central table that stores it.
type attrTable struct {
	owner  graph.Class
	attr   string
	table  string
	column string
	multi  bool // <Class>_2_<attr> table ordered by <attr>_rank
	scalar bool // literal column rather than a DB_ID reference
}

// attrTables lists the attributes the exporter reads, in query order.
var attrTables = []attrTable{
	{owner: graph.ClassPathway, attr: graph.AttrHasEvent, table: "Pathway_2_hasEvent", column: "hasEvent", multi: true},
	{owner: graph.ClassPathway, attr: graph.AttrSpecies, table: "Event_2_species", column: "species", multi: true},
	{owner: graph.ClassEvent, attr: graph.AttrCompartment, table: "Event_2_compartment", column: "compartment", multi: true},
	{owner: graph.ClassReactionLikeEvent, attr: graph.AttrInput, table: "ReactionlikeEvent_2_input", column: "input", multi: true},
	{owner: graph.ClassReactionLikeEvent, attr: graph.AttrOutput, table: "ReactionlikeEvent_2_output", column: "output", multi: true},
	{owner: graph.ClassReactionLikeEvent, attr: graph.AttrCatalystActivity, table: "ReactionlikeEvent_2_catalystActivity", column: "catalystActivity", multi: true},
	{owner: graph.ClassReactionLikeEvent, attr: graph.AttrRegulatedBy, table: "ReactionlikeEvent_2_regulatedBy", column: "regulatedBy", multi: true},
	{owner: graph.ClassPhysicalEntity, attr: graph.AttrCompartment, table: "PhysicalEntity_2_compartment", column: "compartment", multi: true},
	{owner: graph.ClassCatalystActivity, attr: graph.AttrPhysicalEntity, table: "CatalystActivity", column: "physicalEntity"},
	{owner: graph.ClassCatalystActivity, attr: graph.AttrActivity, table: "CatalystActivity", column: "activity"},
	{owner: graph.ClassRegulation, attr: graph.AttrRegulator, table: "Regulation", column: "regulator"},
	{owner: graph.ClassGOCellularComponent, attr: "accession", table: "GO_CellularComponent", column: "accession", scalar: true},
}

// MySQLOptions configures the relational database connection.
type MySQLOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DSN renders the go-sql-driver connection string.
func (o MySQLOptions) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", o.Host, o.Port)
	cfg.DBName = o.Database
	cfg.Timeout = 10 * time.Second
	return cfg.FormatDSN()
}

// MySQLBackend reads records from a Reactome relational (gk_central) database.
type MySQLBackend struct {
	db   *sql.DB
	name string
}

// sqlOpen is swapped by tests.
var sqlOpen = sql.Open

// NewMySQLBackend opens and pings the relational database.
func NewMySQLBackend(ctx context.Context, opts MySQLOptions) (*MySQLBackend, error) {
	db, err := sqlOpen("mysql", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to %s:%d: %w", opts.Host, opts.Port, err)
	}
	return NewMySQLBackendFromDB(db, opts.Database), nil
}

// NewMySQLBackendFromDB wraps an open handle.
func NewMySQLBackendFromDB(db *sql.DB, name string) *MySQLBackend {
	return &MySQLBackend{db: db, name: name}
}

// FetchByID implements Source.
func (m *MySQLBackend) FetchByID(ctx context.Context, dbID int64) (*graph.Instance, error) {
	var (
		className   string
		displayName sql.NullString
		stID        sql.NullString
	)
	err := m.db.QueryRowContext(ctx,
		"SELECT d._class, d._displayName, s.identifier FROM DatabaseObject d "+
			"LEFT JOIN StableIdentifier s ON d.stableIdentifier = s.DB_ID WHERE d.DB_ID = ?", dbID).
		Scan(&className, &displayName, &stID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %d: %w", dbID, err)
	}

	inst := graph.NewInstance(dbID, normaliseClass(className), displayName.String)
	inst.StID = stID.String

	for _, t := range attrTables {
		if !inst.IsA(t.owner) {
			continue
		}
		if err := m.fillAttribute(ctx, inst, t); err != nil {
			return nil, err
		}
	}
	return inst, nil
}

func (m *MySQLBackend) fillAttribute(ctx context.Context, inst *graph.Instance, t attrTable) error {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE DB_ID = ?", t.column, t.table)
	if t.multi {
		query += fmt.Sprintf(" ORDER BY %s_rank", t.column)
	}

	rows, err := m.db.QueryContext(ctx, query, inst.DBID)
	if err != nil {
		return fmt.Errorf("reading %s of %d: %w", t.attr, inst.DBID, err)
	}
	defer rows.Close()

	for rows.Next() {
		if t.scalar {
			var v sql.NullString
			if err := rows.Scan(&v); err != nil {
				return fmt.Errorf("scanning %s: %w", t.attr, err)
			}
			if v.Valid {
				inst.AddScalar(t.attr, v.String)
			}
			continue
		}
		var ref sql.NullInt64
		if err := rows.Scan(&ref); err != nil {
			return fmt.Errorf("scanning %s: %w", t.attr, err)
		}
		if ref.Valid {
			inst.AddRef(t.attr, ref.Int64)
		}
	}
	return rows.Err()
}

// FetchByAttribute implements Source.
func (m *MySQLBackend) FetchByAttribute(ctx context.Context, class graph.Class, attr string, value any) ([]*graph.Instance, error) {
	var (
		query string
		arg   any = value
	)
	switch attr {
	case graph.AttrStID:
		query = "SELECT d.DB_ID FROM DatabaseObject d JOIN StableIdentifier s ON d.stableIdentifier = s.DB_ID " +
			"WHERE s.identifier = ? ORDER BY d.DB_ID"
	case graph.AttrDisplayName:
		query = "SELECT DB_ID FROM DatabaseObject WHERE _displayName = ? ORDER BY DB_ID"
	default:
		t, ok := lookupAttrTable(class, attr)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnsupportedAttribute, class, attr)
		}
		if ref, ok := refValue(value); ok {
			arg = ref
		}
		query = fmt.Sprintf("SELECT DISTINCT DB_ID FROM %s WHERE %s = ? ORDER BY DB_ID", t.table, t.column)
	}

	ids, err := m.queryIDs(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("fetching %s by %s: %w", class, attr, err)
	}
	return m.fetchIDs(ctx, ids, class)
}

// lookupAttrTable finds the table storing attr for class or any of its
// subclasses, so Event.hasEvent resolves to the Pathway table.
func lookupAttrTable(class graph.Class, attr string) (attrTable, bool) {
	for _, t := range attrTables {
		if t.attr == attr && (class.IsA(t.owner) || t.owner.IsA(class)) {
			return t, true
		}
	}
	return attrTable{}, false
}

// FetchByClass implements ClassLister.
func (m *MySQLBackend) FetchByClass(ctx context.Context, class graph.Class) ([]*graph.Instance, error) {
	var names []any
	for _, c := range graph.Classes() {
		if c.IsA(class) {
			names = append(names, mysqlClassName(c))
		}
	}
	if len(names) == 0 {
		names = append(names, string(class))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	ids, err := m.queryIDs(ctx, "SELECT DB_ID FROM DatabaseObject WHERE _class IN ("+placeholders+") ORDER BY DB_ID", names...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", class, err)
	}
	return m.fetchIDs(ctx, ids, class)
}

func (m *MySQLBackend) queryIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (m *MySQLBackend) fetchIDs(ctx context.Context, ids []int64, class graph.Class) ([]*graph.Instance, error) {
	var out []*graph.Instance
	for _, id := range ids {
		inst, err := m.FetchByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if inst != nil && inst.IsA(class) {
			out = append(out, inst)
		}
	}
	return out, nil
}

// errNoSuchTable is the MySQL server error for a missing table.
const errNoSuchTable = 1146

// Info implements Source. Curator databases have no release table; they
// report version 0.
func (m *MySQLBackend) Info(ctx context.Context) (DBInfo, error) {
	info := DBInfo{Name: m.name}
	var release sql.NullInt64
	err := m.db.QueryRowContext(ctx, "SELECT releaseNumber FROM _Release LIMIT 1").Scan(&release)
	if err != nil && !errors.Is(err, sql.ErrNoRows) && !isNoSuchTable(err) {
		return info, fmt.Errorf("reading release: %w", err)
	}
	info.Version = int(release.Int64)
	return info, nil
}

func isNoSuchTable(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == errNoSuchTable
}

// Close implements Source.
func (m *MySQLBackend) Close() error {
	return m.db.Close()
}

// gk_central spells the reaction superclass "ReactionlikeEvent".
func normaliseClass(name string) graph.Class {
	if name == "ReactionlikeEvent" {
		return graph.ClassReactionLikeEvent
	}
	return graph.Class(name)
}

func mysqlClassName(c graph.Class) string {
	if c == graph.ClassReactionLikeEvent {
		return "ReactionlikeEvent"
	}
	return string(c)
}
