package storage

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Benny93/reactome-sbml/internal/graph"
)

// identifierRe guards labels, relationship types and property names that
// have to be spliced into Cypher text.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// cypherRunner executes a read query and returns rows keyed by column.
type cypherRunner interface {
	Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// driverRunner runs queries through a neo4j driver.
type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverRunner) Run(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	result, err := neo4j.ExecuteQuery(ctx, d.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(d.database),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]any, 0, len(result.Records))
	for _, record := range result.Records {
		rows = append(rows, record.AsMap())
	}
	return rows, nil
}

func (d *driverRunner) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// Neo4jBackend reads records from a Reactome graph database.
//
// Nodes carry one label per schema class in their lineage plus dbId, stId,
// displayName and schemaClass properties. Attributes are outgoing
// relationships named after the attribute; input and output relationships
// carry stoichiometry and order.
type Neo4jBackend struct {
	runner cypherRunner
}

// Neo4jOptions configures the graph database connection.
type Neo4jOptions struct {
	URI      string
	User     string
	Password string
	Database string
}

// NewNeo4jBackend connects to the graph database and verifies connectivity.
func NewNeo4jBackend(ctx context.Context, opts Neo4jOptions) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.User, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", opts.URI, err)
	}
	return &Neo4jBackend{runner: &driverRunner{driver: driver, database: opts.Database}}, nil
}

const fetchByIDQuery = `
MATCH (n:DatabaseObject {dbId: $dbId})
OPTIONAL MATCH (n)-[r]->(m:DatabaseObject)
RETURN properties(n) AS props,
       collect({attr: type(r), ref: m.dbId, stoichiometry: r.stoichiometry, order: r.order}) AS refs`

// Node properties that are carried on Instance fields rather than attributes.
var reservedProps = map[string]bool{
	"dbId":        true,
	"stId":        true,
	"schemaClass": true,
	"displayName": true,
}

// FetchByID implements Source.
func (n *Neo4jBackend) FetchByID(ctx context.Context, dbID int64) (*graph.Instance, error) {
	rows, err := n.runner.Run(ctx, fetchByIDQuery, map[string]any{"dbId": dbID})
	if err != nil {
		return nil, fmt.Errorf("fetching %d: %w", dbID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return instanceFromRow(rows[0])
}

type neo4jRef struct {
	attr          string
	ref           int64
	stoichiometry int64
	order         int64
}

func instanceFromRow(row map[string]any) (*graph.Instance, error) {
	props, _ := row["props"].(map[string]any)
	if props == nil {
		return nil, nil
	}

	dbID, ok := toInt64(props["dbId"])
	if !ok {
		return nil, fmt.Errorf("node without dbId: %v", props)
	}

	className, _ := props["schemaClass"].(string)
	displayName, _ := props["displayName"].(string)
	inst := graph.NewInstance(dbID, graph.Class(className), displayName)
	inst.StID, _ = props["stId"].(string)

	// Scalar properties become attributes, sorted for stable output.
	keys := make([]string, 0, len(props))
	for k := range props {
		if !reservedProps[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := props[k].(type) {
		case []any:
			for _, item := range v {
				inst.AddScalar(k, fmt.Sprint(item))
			}
		default:
			inst.AddScalar(k, fmt.Sprint(v))
		}
	}

	var refs []neo4jRef
	rawRefs, _ := row["refs"].([]any)
	for _, raw := range rawRefs {
		m, _ := raw.(map[string]any)
		attr, _ := m["attr"].(string)
		target, ok := toInt64(m["ref"])
		if attr == "" || !ok {
			continue // OPTIONAL MATCH with no relationships
		}
		stoich, ok := toInt64(m["stoichiometry"])
		if !ok || stoich < 1 {
			stoich = 1
		}
		order, _ := toInt64(m["order"])
		refs = append(refs, neo4jRef{attr: attr, ref: target, stoichiometry: stoich, order: order})
	}
	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].attr != refs[j].attr {
			return refs[i].attr < refs[j].attr
		}
		if refs[i].order != refs[j].order {
			return refs[i].order < refs[j].order
		}
		return refs[i].ref < refs[j].ref
	})
	for _, r := range refs {
		for k := int64(0); k < r.stoichiometry; k++ {
			inst.AddRef(r.attr, r.ref)
		}
	}

	return inst, nil
}

// FetchByAttribute implements Source.
func (n *Neo4jBackend) FetchByAttribute(ctx context.Context, class graph.Class, attr string, value any) ([]*graph.Instance, error) {
	if !class.Known() {
		return nil, fmt.Errorf("unknown schema class %q", class)
	}
	if !identifierRe.MatchString(attr) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAttribute, attr)
	}

	var query string
	params := map[string]any{}
	if ref, ok := refValue(value); ok && attr != graph.AttrStID && attr != graph.AttrDisplayName {
		query = fmt.Sprintf("MATCH (n:%s)-[:%s]->(:DatabaseObject {dbId: $ref}) RETURN DISTINCT n.dbId AS dbId ORDER BY dbId", class, attr)
		params["ref"] = ref
	} else {
		query = fmt.Sprintf("MATCH (n:%s) WHERE n[$attr] = $value RETURN n.dbId AS dbId ORDER BY dbId", class)
		params["attr"] = attr
		params["value"] = value
	}

	rows, err := n.runner.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("fetching %s by %s: %w", class, attr, err)
	}
	return n.fetchRows(ctx, rows)
}

// FetchByClass implements ClassLister.
func (n *Neo4jBackend) FetchByClass(ctx context.Context, class graph.Class) ([]*graph.Instance, error) {
	if !class.Known() {
		return nil, fmt.Errorf("unknown schema class %q", class)
	}
	rows, err := n.runner.Run(ctx, fmt.Sprintf("MATCH (n:%s) RETURN n.dbId AS dbId ORDER BY dbId", class), nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", class, err)
	}
	return n.fetchRows(ctx, rows)
}

func (n *Neo4jBackend) fetchRows(ctx context.Context, rows []map[string]any) ([]*graph.Instance, error) {
	var out []*graph.Instance
	for _, row := range rows {
		dbID, ok := toInt64(row["dbId"])
		if !ok {
			continue
		}
		inst, err := n.FetchByID(ctx, dbID)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			out = append(out, inst)
		}
	}
	return out, nil
}

// Info implements Source.
func (n *Neo4jBackend) Info(ctx context.Context) (DBInfo, error) {
	rows, err := n.runner.Run(ctx, "MATCH (d:DBInfo) RETURN d.name AS name, d.version AS version LIMIT 1", nil)
	if err != nil {
		return DBInfo{}, fmt.Errorf("reading DBInfo: %w", err)
	}
	var info DBInfo
	if len(rows) > 0 {
		info.Name, _ = rows[0]["name"].(string)
		if v, ok := toInt64(rows[0]["version"]); ok {
			info.Version = int(v)
		}
	}
	return info, nil
}

// Close implements Source.
func (n *Neo4jBackend) Close() error {
	return n.runner.Close(context.Background())
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
