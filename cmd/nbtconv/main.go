package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"nbtforge.ai/internal/config"
	"nbtforge.ai/internal/doc"
	"nbtforge.ai/internal/frame"
	"nbtforge.ai/internal/index"
	"nbtforge.ai/internal/inspect"
	"nbtforge.ai/internal/nbt"
	"nbtforge.ai/internal/transport/ws"
)

const usage = `usage:
  nbtconv encode <in.{yaml,json,jsonc,toml,cbor}> [-o out] [-c compression] [--schema file] [--index db]
  nbtconv dump <file.nbt>
  nbtconv serve [--listen addr]
`

// usageError exits with status 2.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "[nbtconv] ", log.LstdFlags|log.Lmicroseconds)

	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	var err error
	switch args[0] {
	case "encode":
		err = encodeCmd(args[1:], stdout, logger)
	case "dump":
		err = dumpCmd(args[1:], stdout)
	case "serve":
		err = serveCmd(args[1:], logger)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		err = usageError{fmt.Sprintf("unknown command %q", args[0])}
	}
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) || errors.Is(err, pflag.ErrHelp) {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(stderr, err)
		}
		fmt.Fprint(stderr, usage)
		return 2
	}
	logger.Printf("%s: %v", args[0], err)
	return 1
}

// commonFlags are shared by encode and serve; values left unset come from
// the config file.
type commonFlags struct {
	configPath  string
	compression string
	schema      string
	indexPath   string
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVar(&c.configPath, "config", config.DefaultPath, "config file")
	fs.StringVarP(&c.compression, "compression", "c", "", "none|gzip|zlib|zstd|lz4 (default from config)")
	fs.StringVar(&c.schema, "schema", "", "JSON schema the document must satisfy")
	fs.StringVar(&c.indexPath, "index", "", "record conversions in this SQLite index")
}

func (c *commonFlags) resolve(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.LoadOrDefault(c.configPath, fs.Changed("config"))
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if c.compression != "" {
		comp, err := frame.ParseCompression(c.compression)
		if err != nil {
			return cfg, usageError{err.Error()}
		}
		cfg.Compression = comp
	}
	if c.schema != "" {
		cfg.Schema = c.schema
	}
	if c.indexPath != "" {
		cfg.IndexPath = c.indexPath
	}
	return cfg, nil
}

func openIndex(cfg config.Config, logger *log.Logger) (*index.Index, error) {
	if strings.TrimSpace(cfg.IndexPath) == "" {
		return nil, nil
	}
	return index.Open(cfg.IndexPath, logger)
}

func compileSchema(cfg config.Config) (*doc.Schema, error) {
	if strings.TrimSpace(cfg.Schema) == "" {
		return nil, nil
	}
	return doc.CompileSchema(cfg.Schema)
}

func encodeCmd(args []string, stdout io.Writer, logger *log.Logger) error {
	fs := pflag.NewFlagSet("encode", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var common commonFlags
	common.add(fs)
	out := fs.StringP("out", "o", "", "output path, - for stdout (default: input name with .nbt)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{"encode takes exactly one input file"}
	}
	in := fs.Arg(0)

	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	schema, err := compileSchema(cfg)
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg, logger)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	d, err := doc.Load(in)
	if err != nil {
		return err
	}
	if err := schema.Validate(d); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	raw, err := nbt.Encode(d.Root)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	dst := *out
	if dst == "" {
		dst = strings.TrimSuffix(in, filepath.Ext(in)) + ".nbt" + cfg.Compression.Ext()
	}
	var framed int64
	if dst == "-" {
		b, err := frame.Compress(raw, cfg.Compression)
		if err != nil {
			return err
		}
		if _, err := stdout.Write(b); err != nil {
			return err
		}
		framed = int64(len(b))
	} else {
		if framed, err = frame.WriteFile(dst, raw, cfg.Compression); err != nil {
			return err
		}
		logger.Printf("wrote %s (%d bytes, %s, %d raw)", dst, framed, cfg.Compression, len(raw))
	}

	idx.Record(index.Entry{
		Source:      in,
		Output:      dst,
		Format:      d.Format.String(),
		Compression: cfg.Compression.String(),
		RawSize:     int64(len(raw)),
		FramedSize:  framed,
		Digest:      index.Digest(raw),
	})
	return nil
}

func dumpCmd(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err.Error()}
	}
	if fs.NArg() != 1 {
		return usageError{"dump takes exactly one file"}
	}
	raw, _, err := frame.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	root, err := inspect.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", fs.Arg(0), err)
	}
	return inspect.Dump(stdout, root)
}

func serveCmd(args []string, logger *log.Logger) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var common commonFlags
	common.add(fs)
	listen := fs.String("listen", "", "http listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err.Error()}
	}
	if fs.NArg() != 0 {
		return usageError{"serve takes no arguments"}
	}
	cfg, err := common.resolve(fs)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Serve.Listen = *listen
	}
	schema, err := compileSchema(cfg)
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg, logger)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	s := ws.NewServer(ws.Config{
		Compression:     cfg.Compression,
		Schema:          schema,
		Index:           idx,
		MaxRequestBytes: cfg.Serve.MaxRequestBytes,
	}, logger)

	ctx, cancel := signalContext()
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.Serve.Listen,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", cfg.Serve.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
