package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	goredis "github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/veiloq/cascade"
	"github.com/veiloq/cascade/codec"
	"github.com/veiloq/cascade/filestore"
	cascadeslog "github.com/veiloq/cascade/log/slog"
	"github.com/veiloq/cascade/loghooks"
	"github.com/veiloq/cascade/provider"
	memprov "github.com/veiloq/cascade/provider/memory"
	redisprov "github.com/veiloq/cascade/provider/redis"
	"github.com/veiloq/cascade/source"
	"github.com/veiloq/cascade/source/sqlsource"
)

// row is the CLI's value shape: one generic map per table row.
type row = map[string]any

// app wires the configured backends into one accessor, keeping direct layer
// handles around for the stats probes.
type app struct {
	cfg    *Config
	cache  cascade.Cascade[row]
	files  *filestore.Store[row]
	prov   provider.Provider
	tables map[string]*sqlsource.Table[row]
	db     *sql.DB
	prefix string
}

func buildApp(cfg *Config, log *slog.Logger) (*app, error) {
	prov, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	files, err := filestore.New[row](filestore.Options[row]{
		Root:  cfg.StorageRoot,
		Ext:   cfg.ext(),
		Codec: envelopeCodec(cfg),
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		files:  files,
		prov:   prov,
		tables: make(map[string]*sqlsource.Table[row]),
		prefix: cfg.Prefix,
	}
	if a.prefix == "" {
		a.prefix = "cascade:" // keep the probes in step with the accessor default
	}

	sources := make(map[string]source.Binding[row], len(cfg.Keys))
	if cfg.Database != "" {
		a.db, err = sql.Open("sqlite", cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		for key, kc := range cfg.Keys {
			tbl, err := sqlsource.Maps(sqlsource.MapConfig{
				DB:            a.db,
				Table:         kc.Table,
				Columns:       kc.Columns,
				IDColumn:      kc.IDColumn,
				OrderBy:       kc.OrderBy,
				SoftDelete:    kc.SoftDelete,
				DeletedColumn: kc.DeletedColumn,
			})
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			a.tables[key] = tbl
			sources[key] = source.Binding[row]{Source: tbl}
		}
	}

	a.cache, err = cascade.New[row](cascade.Options[row]{
		Provider:    prov,
		Files:       files,
		Prefix:      cfg.Prefix,
		DefaultTTL:  cfg.DefaultTTL.Std(),
		Codec:       rowsCodec(cfg),
		Sources:     sources,
		Isolate:     cfg.Isolate,
		DisableTags: cfg.DisableTags,
		TagName:     cfg.TagName,
		Logger:      cascadeslog.Logger{L: log},
		Hooks:       loghooks.New(log, loghooks.Options{}),
		LogReads:    cfg.LogReads,
		LogWrites:   cfg.LogWrites,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.cache != nil {
		errs = append(errs, a.cache.Close(ctx)) // closes the provider too
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func buildProvider(cfg *Config) (provider.Provider, error) {
	switch cfg.Provider {
	case "", "memory":
		return memprov.New(memprov.Config{SweepInterval: time.Minute}), nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return redisprov.New(redisprov.Config{Client: client, CloseClient: true})
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}

func rowsCodec(cfg *Config) codec.Codec[[]row] {
	switch cfg.Format {
	case "msgpack":
		return codec.Msgpack[[]row]{}
	case "cbor":
		return codec.MustCBOR[[]row](false)
	default:
		return codec.JSON[[]row]{}
	}
}

func envelopeCodec(cfg *Config) codec.Codec[filestore.Envelope[row]] {
	switch cfg.Format {
	case "msgpack":
		return codec.Msgpack[filestore.Envelope[row]]{}
	case "cbor":
		return codec.MustCBOR[filestore.Envelope[row]](false)
	default:
		return codec.JSON[filestore.Envelope[row]]{}
	}
}

// boundKeys returns the configured keys in stable order.
func (a *app) boundKeys() []string {
	keys := make([]string, 0, len(a.cfg.Keys))
	for k := range a.cfg.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (a *app) refresh(ctx context.Context, args []string, w io.Writer) error {
	keys := args
	if len(keys) == 0 {
		keys = a.boundKeys()
	}
	if len(keys) == 0 {
		return fmt.Errorf("no keys bound in config")
	}
	var errs []error
	for _, key := range keys {
		rows, ok, err := a.cache.Refresh(ctx, key)
		switch {
		case err != nil:
			fmt.Fprintf(w, "refresh %q: %v\n", key, err)
			errs = append(errs, err)
		case !ok:
			fmt.Fprintf(w, "refreshed %q: source is empty\n", key)
		default:
			fmt.Fprintf(w, "refreshed %q: %d rows\n", key, len(rows))
		}
	}
	return errors.Join(errs...)
}

func (a *app) clear(ctx context.Context, args []string, stdin io.Reader, w io.Writer, yes bool) error {
	target := "every cached entry and file"
	if len(args) > 0 {
		target = fmt.Sprintf("cached state for %q", strings.Join(args, `", "`))
	}
	if !yes && !confirm(stdin, w, fmt.Sprintf("clear %s? [y/N] ", target)) {
		fmt.Fprintln(w, "aborted")
		return nil
	}
	if len(args) == 0 {
		if err := a.cache.ClearAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(w, "cleared everything")
		return nil
	}
	for _, key := range args {
		if err := a.cache.Invalidate(ctx, key); err != nil {
			return err
		}
		fmt.Fprintf(w, "cleared %q\n", key)
	}
	return nil
}

// statsReport probes where each bound key currently lives and prints this
// process's accessor counters.
func (a *app) statsReport(ctx context.Context, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tCACHE\tFILE\tSOURCE")
	for _, key := range a.boundKeys() {
		inCache, err := a.prov.Has(ctx, a.prefix+key)
		if err != nil {
			return err
		}
		inFile, err := a.files.Exists(ctx, key)
		if err != nil {
			return err
		}
		inSource := "-"
		if tbl, ok := a.tables[key]; ok {
			inSource = yn(tbl.Exists(ctx))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, yn(inCache), yn(inFile), inSource)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	s := a.cache.Stats()
	fmt.Fprintf(w, "\nlookups %d (cache %d, file %d, source %d, miss %d), writes %d\n",
		s.Lookups(), s.CacheHits, s.FileHits, s.SourceHits, s.Misses, s.Writes)
	return nil
}

func yn(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
