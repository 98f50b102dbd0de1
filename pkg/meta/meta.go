// Package meta is the in-process metadata service. It keeps the table
// registry, the set of registered memory nodes and the assignment of table
// partitions to nodes.
//
// All operations take the service lock, so a Service can be shared by any
// number of goroutines. State can be persisted with Snapshot and brought
// back with Restore.
package meta

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/compression"
	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/logger"
	"github.com/rtstore/rtstore/pkg/schema"
)

// NodeType identifies the role of a worker node.
type NodeType int32

const (
	// MemoryNode buffers rows for tables and flushes them to storage.
	MemoryNode NodeType = iota
	// ComputeNode executes queries. Compute nodes cannot be registered yet.
	ComputeNode
)

// String returns the node type name.
func (t NodeType) String() string {
	switch t {
	case MemoryNode:
		return "memory"
	case ComputeNode:
		return "compute"
	default:
		return "unknown"
	}
}

// ParseNodeType parses a node type name.
func ParseNodeType(s string) (NodeType, error) {
	switch s {
	case "memory":
		return MemoryNode, nil
	case "compute":
		return ComputeNode, nil
	default:
		return 0, errors.Newf(errors.ErrorTypeValidation, "unknown node type %q", s)
	}
}

// Table is a registered table. The descriptor must be treated as read only.
type Table struct {
	ID        string            `json:"id"`
	UUID      string            `json:"uuid"`
	Desc      *schema.TableDesc `json:"desc"`
	CreatedAt time.Time         `json:"created_at"`
}

// Node is a registered worker node.
type Node struct {
	Endpoint     string    `json:"endpoint"`
	Type         NodeType  `json:"type"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Service is the metadata service.
type Service struct {
	mu sync.RWMutex

	// key is the table id
	tables map[string]*Table
	// key is the node endpoint
	nodes map[string]*Node
	// table id -> partition -> node endpoint
	assignments map[string]map[int32]string
	schemas     *schema.Registry

	logger     *zap.Logger
	compressor compression.Compressor
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCompressor sets the compressor used for snapshots.
func WithCompressor(c compression.Compressor) Option {
	return func(s *Service) { s.compressor = c }
}

// New creates an empty Service. Snapshots default to zstd.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		tables:      make(map[string]*Table),
		nodes:       make(map[string]*Node),
		assignments: make(map[string]map[int32]string),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.schemas = schema.NewRegistry(s.logger)
	if s.compressor == nil {
		c, err := compression.NewCompressor(compression.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.compressor = c
	}
	return s, nil
}

// CreateTable registers desc and returns its id, the qualified name joined
// with ".". A nil or structurally invalid descriptor is a validation error;
// a schema the mapper rejects fails with its conversion error; an id that
// is already registered fails with an already exists error.
func (s *Service) CreateTable(desc *schema.TableDesc) (string, error) {
	if desc == nil {
		return "", errors.New(errors.ErrorTypeValidation, "input is invalid for empty table description")
	}
	if err := desc.Validate(); err != nil {
		return "", err
	}
	if _, err := schema.ToArrowSchema(desc.Schema); err != nil {
		return "", err
	}
	id, _ := desc.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("create table", zap.String("table", id))
	if _, ok := s.tables[id]; ok {
		return "", errors.NewAlreadyExists("table", id)
	}
	if _, err := s.schemas.Register(id, desc.Schema); err != nil {
		return "", err
	}
	t := &Table{
		ID:        id,
		UUID:      uuid.NewString(),
		Desc:      desc,
		CreatedAt: s.now().UTC(),
	}
	s.tables[id] = t
	s.logger.Info("created table", zap.String("table", id), zap.String("uuid", t.UUID))
	return id, nil
}

// DropTable removes a table and its partition assignments.
func (s *Service) DropTable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[id]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", id)
	}
	delete(s.tables, id)
	delete(s.assignments, id)
	s.schemas.Drop(id)
	s.logger.Info("dropped table", zap.String("table", id))
	return nil
}

// EvolveSchema registers sd as the next schema version of a table and makes
// it the table's current schema. The change must satisfy the table's
// compatibility mode and keep every partition column. Registering the
// current schema again is a no-op; going back to an older one is rejected.
func (s *Service) EvolveSchema(tableID string, sd *schema.SchemaDesc) (int32, error) {
	if sd == nil {
		return 0, errors.New(errors.ErrorTypeValidation, "input is invalid for empty schema description")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableID]
	if !ok {
		return 0, errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", tableID)
	}
	next := &schema.TableDesc{Names: t.Desc.Names, Schema: sd, Partition: t.Desc.Partition}
	if err := next.Validate(); err != nil {
		return 0, err
	}
	if _, err := schema.ToArrowSchema(sd); err != nil {
		return 0, err
	}

	v, err := s.schemas.Register(tableID, sd)
	if err != nil {
		return 0, err
	}
	current := t.Desc.Schema.Version
	if v.Version == current {
		return current, nil
	}
	if v.Version < current {
		return 0, errors.Newf(errors.ErrorTypeValidation, "schema matches older version %d", v.Version).
			WithDetail("table", tableID)
	}

	next.Schema = v.Schema
	t.Desc = next
	s.logger.Info("evolved table schema",
		zap.String("table", tableID),
		zap.Int32("from", current),
		zap.Int32("to", v.Version))
	return v.Version, nil
}

// SchemaHistory returns every schema version of a table, oldest first.
func (s *Service) SchemaHistory(tableID string) ([]schema.SchemaVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tables[tableID]; !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", tableID)
	}
	versions, err := s.schemas.History(tableID)
	if err != nil {
		return nil, err
	}
	out := make([]schema.SchemaVersion, len(versions))
	for i, v := range versions {
		out[i] = *v
	}
	return out, nil
}

// SetCompatibility sets the schema compatibility mode of a table.
func (s *Service) SetCompatibility(tableID string, mode schema.CompatibilityMode) error {
	if _, err := schema.ParseCompatibilityMode(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[tableID]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", tableID)
	}
	s.schemas.SetCompatibility(tableID, mode)
	return nil
}

// RegisterNode adds a worker node. Only memory nodes are accepted.
func (s *Service) RegisterNode(endpoint string, t NodeType) error {
	if t != MemoryNode {
		return errors.New(errors.ErrorTypeValidation, "memory node is required").
			WithDetail("node_type", t.String())
	}
	if endpoint == "" {
		return errors.New(errors.ErrorTypeValidation, "node endpoint is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[endpoint]; ok {
		return errors.NewAlreadyExists("memory node", endpoint)
	}
	s.nodes[endpoint] = &Node{Endpoint: endpoint, Type: t, RegisteredAt: s.now().UTC()}
	s.logger.Info("registered memory node", zap.String("endpoint", endpoint))
	return nil
}

// AssignPartition routes partition of table to the node at endpoint,
// replacing any previous assignment. When the table declares a partition
// count the partition must be below it.
func (s *Service) AssignPartition(tableID string, partition int32, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[tableID]
	if !ok {
		return errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", tableID)
	}
	if _, ok := s.nodes[endpoint]; !ok {
		return errors.New(errors.ErrorTypeNotFound, "node not found").WithDetail("endpoint", endpoint)
	}
	if partition < 0 || (t.Desc.Partition != nil && t.Desc.Partition.Count > 0 && partition >= t.Desc.Partition.Count) {
		return errors.Newf(errors.ErrorTypeValidation, "partition %d out of range", partition).
			WithDetail("table", tableID)
	}

	parts, ok := s.assignments[tableID]
	if !ok {
		parts = make(map[int32]string)
		s.assignments[tableID] = parts
	}
	parts[partition] = endpoint
	s.logger.Debug("assigned partition",
		zap.String("table", tableID),
		zap.Int32("partition", partition),
		zap.String("endpoint", endpoint))
	return nil
}

// Assignments returns a copy of the partition to node map of a table.
func (s *Service) Assignments(tableID string) (map[int32]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.tables[tableID]; !ok {
		return nil, errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", tableID)
	}
	out := make(map[int32]string, len(s.assignments[tableID]))
	for p, e := range s.assignments[tableID] {
		out[p] = e
	}
	return out, nil
}

// Table returns the table registered under id.
func (s *Service) Table(id string) (Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[id]
	if !ok {
		return Table{}, errors.New(errors.ErrorTypeNotFound, "table not found").WithDetail("table", id)
	}
	return *t, nil
}

// Tables returns every table ordered by id.
func (s *Service) Tables() []Table {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Table, 0, len(s.tables))
	for _, t := range s.tables {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Nodes returns every node ordered by endpoint.
func (s *Service) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// Ping reports whether the service is able to serve requests.
func (s *Service) Ping() error {
	return nil
}
