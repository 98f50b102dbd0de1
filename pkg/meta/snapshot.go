package meta

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
	"github.com/rtstore/rtstore/pkg/json"
	"github.com/rtstore/rtstore/pkg/schema"
)

const snapshotVersion = 1

type assignment struct {
	Table     string `json:"table"`
	Partition int32  `json:"partition"`
	Endpoint  string `json:"endpoint"`
}

type snapshot struct {
	Version     int          `json:"version"`
	Tables      []Table      `json:"tables"`
	Nodes       []Node       `json:"nodes"`
	Assignments []assignment `json:"assignments"`
	// Schemas is absent in snapshots taken before schema history was kept.
	Schemas *schema.RegistryState `json:"schemas,omitempty"`
}

// Snapshot writes the full service state to w as compressed JSON.
func (s *Service) Snapshot(w io.Writer) error {
	snap := snapshot{
		Version: snapshotVersion,
		Tables:  s.Tables(),
		Nodes:   s.Nodes(),
	}

	s.mu.RLock()
	for table, parts := range s.assignments {
		for p, e := range parts {
			snap.Assignments = append(snap.Assignments, assignment{Table: table, Partition: p, Endpoint: e})
		}
	}
	st := s.schemas.Export()
	snap.Schemas = &st
	s.mu.RUnlock()

	buf, err := json.MarshalToBuffer(&snap)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode snapshot")
	}
	defer json.PutBuffer(buf)

	raw := buf.Len()
	if err := s.compressor.CompressStream(w, buf); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to compress snapshot")
	}
	s.logger.Debug("wrote metadata snapshot",
		zap.Int("tables", len(snap.Tables)),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("raw_bytes", raw))
	return nil
}

// Restore replaces the service state with a snapshot read from r. The
// current state is kept if the snapshot cannot be decoded.
func (s *Service) Restore(r io.Reader) error {
	raw := json.GetBuffer()
	defer json.PutBuffer(raw)
	if err := s.compressor.DecompressStream(raw, r); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "failed to decompress snapshot")
	}

	var snap snapshot
	if err := json.Unmarshal(raw.Bytes(), &snap); err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "failed to decode snapshot")
	}
	if snap.Version != snapshotVersion {
		return errors.Newf(errors.ErrorTypeValidation, "unsupported snapshot version %d", snap.Version)
	}

	tables := make(map[string]*Table, len(snap.Tables))
	for i := range snap.Tables {
		t := snap.Tables[i]
		if err := t.Desc.Validate(); err != nil {
			return err
		}
		if _, err := schema.ToArrowSchema(t.Desc.Schema); err != nil {
			return err
		}
		tables[t.ID] = &t
	}
	nodes := make(map[string]*Node, len(snap.Nodes))
	for i := range snap.Nodes {
		n := snap.Nodes[i]
		nodes[n.Endpoint] = &n
	}
	assignments := make(map[string]map[int32]string)
	for _, a := range snap.Assignments {
		if _, ok := tables[a.Table]; !ok {
			return errors.New(errors.ErrorTypeValidation, "snapshot assigns a partition of an unknown table").
				WithDetail("table", a.Table)
		}
		if _, ok := nodes[a.Endpoint]; !ok {
			return errors.New(errors.ErrorTypeValidation, "snapshot assigns a partition to an unknown node").
				WithDetail("endpoint", a.Endpoint)
		}
		if assignments[a.Table] == nil {
			assignments[a.Table] = make(map[int32]string)
		}
		assignments[a.Table][a.Partition] = a.Endpoint
	}

	schemas, err := s.restoreSchemas(snap.Schemas, tables)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tables = tables
	s.nodes = nodes
	s.assignments = assignments
	s.schemas = schemas
	s.mu.Unlock()

	s.logger.Info("restored metadata snapshot",
		zap.Int("tables", len(tables)),
		zap.Int("nodes", len(nodes)))
	return nil
}

// restoreSchemas rebuilds the schema registry of a snapshot. Tables without
// a history start one from their current schema; a history whose latest
// version differs from the table's schema is rejected.
func (s *Service) restoreSchemas(st *schema.RegistryState, tables map[string]*Table) (*schema.Registry, error) {
	reg := schema.NewRegistry(s.logger)
	if st != nil {
		for id := range st.Schemas {
			if _, ok := tables[id]; !ok {
				return nil, errors.New(errors.ErrorTypeValidation, "snapshot has schema history of an unknown table").
					WithDetail("table", id)
			}
		}
		if err := reg.Import(*st); err != nil {
			return nil, err
		}
	}

	for id, t := range tables {
		latest, err := reg.Latest(id)
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			if _, err := reg.Register(id, t.Desc.Schema); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if latest.Version != t.Desc.Schema.Version || latest.Fingerprint != schema.Fingerprint(t.Desc.Schema) {
			return nil, errors.New(errors.ErrorTypeValidation, "snapshot table schema does not match its history").
				WithDetail("table", id)
		}
	}
	return reg, nil
}

// SaveSnapshot writes a snapshot to name on fs.
func (s *Service) SaveSnapshot(ctx context.Context, fs filesystem.FileSystem, name string) error {
	f, err := fs.Create(ctx, name)
	if err != nil {
		return errors.WrapPersistence(err, name, "failed to create snapshot file")
	}
	if err := s.Snapshot(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WrapPersistence(err, name, "failed to close snapshot file")
	}
	return nil
}

// LoadSnapshot restores the snapshot stored at name on fs.
func (s *Service) LoadSnapshot(ctx context.Context, fs filesystem.FileSystem, name string) error {
	f, err := fs.Open(ctx, name)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Restore(f)
}
