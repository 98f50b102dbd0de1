package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtstore/rtstore/pkg/compression"
	"github.com/rtstore/rtstore/pkg/errors"
	"github.com/rtstore/rtstore/pkg/filesystem"
	"github.com/rtstore/rtstore/pkg/meta"
	"github.com/rtstore/rtstore/pkg/schema"
	stringpool "github.com/rtstore/rtstore/pkg/strings"
)

// metaStore is a metadata service backed by a snapshot file on local disk.
type metaStore struct {
	svc  *meta.Service
	fs   filesystem.FileSystem
	name string
}

// openMeta restores the snapshot at path, or starts empty when there is
// none yet.
func (a *app) openMeta(ctx context.Context, path string) (*metaStore, error) {
	if path == "" {
		path = a.cfg.Meta.SnapshotPath
	}
	alg, err := compression.ParseAlgorithm(a.cfg.Meta.SnapshotCompression)
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	if err != nil {
		return nil, err
	}
	svc, err := meta.New(meta.WithLogger(a.log), meta.WithCompressor(comp))
	if err != nil {
		return nil, err
	}

	fs, err := filesystem.NewLocal(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	s := &metaStore{svc: svc, fs: fs, name: filepath.Base(path)}

	if err := svc.LoadSnapshot(ctx, fs, s.name); err != nil && !errors.IsType(err, errors.ErrorTypeNotFound) {
		return nil, err
	}
	return s, nil
}

func (s *metaStore) save(ctx context.Context) error {
	return s.svc.SaveSnapshot(ctx, s.fs, s.name)
}

func newMetaCmd(a *app) *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Manage the metadata snapshot",
	}
	cmd.PersistentFlags().StringVar(&snapshot, "snapshot", "", "Path to the metadata snapshot (default from config)")

	var tablePath string
	createTable := &cobra.Command{
		Use:   "create-table",
		Short: "Register a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			desc, err := schema.LoadTableDesc(tablePath)
			if err != nil {
				return err
			}
			store, err := a.openMeta(ctx, snapshot)
			if err != nil {
				return err
			}
			id, err := store.svc.CreateTable(desc)
			if err != nil {
				return err
			}
			if err := store.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created table %s\n", id)
			return nil
		},
	}
	createTable.Flags().StringVarP(&tablePath, "table", "t", "", "Path to YAML table description (required)")
	_ = createTable.MarkFlagRequired("table")

	var evolveID, evolvePath, compat string
	evolveTable := &cobra.Command{
		Use:   "evolve-table",
		Short: "Register a new schema version for a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			desc, err := schema.LoadTableDesc(evolvePath)
			if err != nil {
				return err
			}
			store, err := a.openMeta(ctx, snapshot)
			if err != nil {
				return err
			}
			if compat != "" {
				mode, err := schema.ParseCompatibilityMode(compat)
				if err != nil {
					return err
				}
				if err := store.svc.SetCompatibility(evolveID, mode); err != nil {
					return err
				}
			}
			version, err := store.svc.EvolveSchema(evolveID, desc.Schema)
			if err != nil {
				return err
			}
			if err := store.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "table %s is at schema version %d\n", evolveID, version)
			return nil
		},
	}
	evolveTable.Flags().StringVar(&evolveID, "table-id", "", "Table id (required)")
	evolveTable.Flags().StringVarP(&evolvePath, "table", "t", "", "Path to YAML table description with the new schema (required)")
	evolveTable.Flags().StringVar(&compat, "compatibility", "", "Set the compatibility mode first (NONE, BACKWARD, FORWARD, FULL)")
	_ = evolveTable.MarkFlagRequired("table-id")
	_ = evolveTable.MarkFlagRequired("table")

	var historyID string
	history := &cobra.Command{
		Use:   "history",
		Short: "Show the schema versions of a table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openMeta(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			versions, err := store.svc.SchemaHistory(historyID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tCOLUMNS\tCREATED")
			for _, v := range versions {
				names := make([]string, len(v.Schema.Columns))
				for i, c := range v.Schema.Columns {
					names[i] = c.Name + " " + c.Type.String()
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", v.Version, stringpool.JoinPooled(names, ","),
					v.CreatedAt.Format("2006-01-02T15:04:05Z"))
			}
			return tw.Flush()
		},
	}
	history.Flags().StringVar(&historyID, "table-id", "", "Table id (required)")
	_ = history.MarkFlagRequired("table-id")

	var endpoint, nodeType string
	registerNode := &cobra.Command{
		Use:   "register-node",
		Short: "Register a worker node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			nt, err := meta.ParseNodeType(nodeType)
			if err != nil {
				return err
			}
			store, err := a.openMeta(ctx, snapshot)
			if err != nil {
				return err
			}
			if err := store.svc.RegisterNode(endpoint, nt); err != nil {
				return err
			}
			if err := store.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s node %s\n", nt, endpoint)
			return nil
		},
	}
	registerNode.Flags().StringVarP(&endpoint, "endpoint", "e", "", "Node endpoint, host:port (required)")
	registerNode.Flags().StringVar(&nodeType, "type", "memory", "Node type (memory, compute)")
	_ = registerNode.MarkFlagRequired("endpoint")

	var tableID, assignEndpoint string
	var partition int32
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Assign a table partition to a memory node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openMeta(ctx, snapshot)
			if err != nil {
				return err
			}
			if err := store.svc.AssignPartition(tableID, partition, assignEndpoint); err != nil {
				return err
			}
			if err := store.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assigned %s/%d to %s\n", tableID, partition, assignEndpoint)
			return nil
		},
	}
	assign.Flags().StringVar(&tableID, "table-id", "", "Table id (required)")
	assign.Flags().Int32VarP(&partition, "partition", "p", 0, "Partition number")
	assign.Flags().StringVarP(&assignEndpoint, "endpoint", "e", "", "Node endpoint (required)")
	_ = assign.MarkFlagRequired("table-id")
	_ = assign.MarkFlagRequired("endpoint")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered tables and nodes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.openMeta(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			if err := store.svc.Ping(); err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TABLE\tUUID\tVERSION\tCOLUMNS\tPARTITIONS")
			for _, t := range store.svc.Tables() {
				parts, err := store.svc.Assignments(t.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", t.ID, t.UUID, t.Desc.Schema.Version,
					len(t.Desc.Schema.Columns), formatAssignments(parts))
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "NODE\tTYPE\tREGISTERED")
			for _, n := range store.svc.Nodes() {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", n.Endpoint, n.Type, n.RegisteredAt.Format("2006-01-02T15:04:05Z"))
			}
			return tw.Flush()
		},
	}

	cmd.AddCommand(createTable, evolveTable, history, registerNode, assign, list)
	return cmd
}

func formatAssignments(parts map[int32]string) string {
	if len(parts) == 0 {
		return "-"
	}
	keys := make([]int32, 0, len(parts))
	for p := range parts {
		keys = append(keys, p)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	out := make([]string, 0, len(keys))
	for _, p := range keys {
		out = append(out, fmt.Sprintf("%d=%s", p, parts[p]))
	}
	return stringpool.JoinPooled(out, ",")
}
