package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/storage"
)

var (
	ErrTableNotFound = errors.New("catalog: table not found")
	ErrTableExists   = errors.New("catalog: table already exists")
)

const (
	MetaSuffix = ".metadata.txt"
	DataSuffix = ".txt"

	// Placeholder is displayed for a cell that a malformed row does not have.
	Placeholder = "-"
)

type TableMeta struct {
	Name     string
	MetaFile string
	DataFile string
	Schema   record.Schema
}

func metaFile(name string) string { return name + MetaSuffix }
func dataFile(name string) string { return name + DataSuffix }

// Catalog resolves table names inside one storage directory. It is owned by
// a single executor and is not safe for concurrent use.
type Catalog struct {
	store  *storage.Store
	codec  record.RowCodec
	log    *slog.Logger
	tables map[string]*TableMeta
}

// Open scans the storage directory for metadata records and builds the
// table map. Unreadable metadata is logged and skipped.
func Open(store *storage.Store, codec record.RowCodec, logger *slog.Logger) (*Catalog, error) {
	if codec == nil {
		codec = record.PlainCodec{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Catalog{
		store:  store,
		codec:  codec,
		log:    logger,
		tables: make(map[string]*TableMeta),
	}

	names, err := store.List(MetaSuffix)
	if err != nil {
		return nil, fmt.Errorf("catalog: list %s: %w", store.Root(), err)
	}
	for _, n := range names {
		name := strings.TrimSuffix(n, MetaSuffix)
		meta, err := c.loadMeta(name)
		if err != nil {
			c.log.Warn("catalog: skip table with unreadable metadata", "table", name, "err", err)
			continue
		}
		c.tables[name] = meta
	}
	c.log.Debug("catalog: opened", "dir", store.Root(), "tables", len(c.tables))
	return c, nil
}

// Tables lists known table names, sorted.
func (c *Catalog) Tables() []string {
	out := make([]string, 0, len(c.tables))
	for name := range c.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Exists reports whether the table's data file is present.
func (c *Catalog) Exists(name string) (bool, error) {
	return c.store.Exists(dataFile(name))
}

// Occupied reports whether CreateTable would refuse name: either of its
// files is present.
func (c *Catalog) Occupied(name string) (bool, error) {
	ok, err := c.Exists(name)
	if err != nil || ok {
		return ok, err
	}
	return c.store.Exists(metaFile(name))
}

func (c *Catalog) loadMeta(name string) (*TableMeta, error) {
	data, err := c.store.ReadFile(metaFile(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: metadata for table %s does not exist", ErrTableNotFound, name)
		}
		return nil, err
	}
	schema, err := record.DecodeSchema(data)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	return &TableMeta{
		Name:     name,
		MetaFile: metaFile(name),
		DataFile: dataFile(name),
		Schema:   schema,
	}, nil
}

// Lookup resolves name to its metadata. Schemas are immutable, so a cached
// entry is reused as long as its metadata file is still present.
func (c *Catalog) Lookup(name string) (*TableMeta, error) {
	if meta, ok := c.tables[name]; ok {
		present, err := c.store.Exists(meta.MetaFile)
		if err != nil {
			return nil, err
		}
		if present {
			return meta, nil
		}
		delete(c.tables, name)
		return nil, fmt.Errorf("%w: metadata for table %s does not exist", ErrTableNotFound, name)
	}

	meta, err := c.loadMeta(name)
	if err != nil {
		return nil, err
	}
	c.tables[name] = meta
	return meta, nil
}

// Schema returns the schema of an existing table (data and metadata present).
func (c *Catalog) Schema(name string) (record.Schema, error) {
	meta, err := c.requireTable(name)
	if err != nil {
		return record.Schema{}, err
	}
	return meta.Schema, nil
}

func (c *Catalog) requireTable(name string) (*TableMeta, error) {
	ok, err := c.Exists(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: table %s does not exist", ErrTableNotFound, name)
	}
	return c.Lookup(name)
}

// CreateTable writes the metadata record first and the empty data file
// second. A table whose data file exists, or whose metadata file cannot be
// created exclusively, already exists.
func (c *Catalog) CreateTable(name string, schema record.Schema) (*TableMeta, error) {
	exists, err := c.Exists(name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}

	if err := c.store.CreateExclusive(metaFile(name)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s (metadata present)", ErrTableExists, name)
		}
		return nil, fmt.Errorf("catalog: create metadata for %s: %w", name, err)
	}
	if err := c.store.WriteFile(metaFile(name), record.EncodeSchema(schema)); err != nil {
		c.dropMeta(name)
		return nil, fmt.Errorf("catalog: write metadata for %s: %w", name, err)
	}
	if err := c.store.CreateExclusive(dataFile(name)); err != nil {
		c.dropMeta(name)
		return nil, fmt.Errorf("catalog: create data file for %s: %w", name, err)
	}

	meta := &TableMeta{
		Name:     name,
		MetaFile: metaFile(name),
		DataFile: dataFile(name),
		Schema:   schema,
	}
	c.tables[name] = meta
	c.log.Info("catalog: table created", "table", name, "columns", schema.NumCols())
	return meta, nil
}

// dropMeta removes the metadata file of a CreateTable that failed half way,
// so the name stays free.
func (c *Catalog) dropMeta(name string) {
	if err := c.store.Remove(metaFile(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("catalog: remove partial metadata", "table", name, "err", err)
	}
}

// InsertRow validates raw values against the table's schema and appends one
// line. Nothing is written unless every value passes.
func (c *Catalog) InsertRow(name string, raw []string) error {
	meta, err := c.requireTable(name)
	if err != nil {
		return err
	}
	values, err := c.ValidateRow(meta.Schema, raw)
	if err != nil {
		return err
	}
	if err := c.store.AppendLine(meta.DataFile, c.codec.Encode(values)); err != nil {
		return fmt.Errorf("catalog: append to %s: %w", name, err)
	}
	c.log.Debug("catalog: row inserted", "table", name)
	return nil
}

// ValidateRow runs the schema checks and then makes sure the row codec
// can store every value on one line. It returns the normalized values.
func (c *Catalog) ValidateRow(schema record.Schema, raw []string) ([]string, error) {
	values, err := record.ValidateRow(schema, raw)
	if err != nil {
		return nil, err
	}
	if err := record.CheckStorable(c.codec, schema, values); err != nil {
		return nil, err
	}
	return values, nil
}

// Projection is the ordered list of selected schema positions.
type Projection struct {
	Names   []string
	Indexes []int
}

// Project selects columns in schema order. requested == nil means all
// columns; unknown requested names are dropped and requested order is ignored.
func Project(schema record.Schema, requested []string) Projection {
	var want map[string]bool
	if requested != nil {
		want = make(map[string]bool, len(requested))
		for _, r := range requested {
			want[r] = true
		}
	}

	var p Projection
	for i, col := range schema.Cols {
		if want != nil && !want[col.Name] {
			continue
		}
		p.Names = append(p.Names, col.Name)
		p.Indexes = append(p.Indexes, i)
	}
	return p
}

// SelectRows re-reads the data file and returns the projected cells of every
// row. A missing field becomes Placeholder instead of failing the scan.
func (c *Catalog) SelectRows(name string, requested []string) ([]string, [][]string, error) {
	meta, err := c.Lookup(name)
	if err != nil {
		return nil, nil, err
	}

	ok, err := c.Exists(name)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: table %s does not exist", ErrTableNotFound, name)
	}

	proj := Project(meta.Schema, requested)
	var rows [][]string
	err = c.store.ScanLines(meta.DataFile, func(line string) error {
		fields := c.codec.Decode(line)
		cells := make([]string, len(proj.Indexes))
		for i, idx := range proj.Indexes {
			if idx < len(fields) {
				cells[i] = strings.TrimSpace(fields[idx])
			} else {
				cells[i] = Placeholder
			}
		}
		rows = append(rows, cells)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: scan %s: %w", name, err)
	}
	return proj.Names, rows, nil
}

// RowCount returns the number of stored lines of a table.
func (c *Catalog) RowCount(name string) (int, error) {
	meta, err := c.requireTable(name)
	if err != nil {
		return 0, err
	}
	return c.store.CountLines(meta.DataFile)
}
