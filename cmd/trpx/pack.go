package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/lattice-imaging/trpx/internal/pool"

	"github.com/lattice-imaging/trpx"
)

func packCmd() *cli.Command {
	var (
		input   string
		output  string
		dtype   string
		dim     string
		block   int64
		small   bool
		dop     float64
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "compress a raw little-endian binary sample stream into a .trpx file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to raw binary input, or - for stdin",
				Value:       "-",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path to write the .trpx file, or - for stdout",
				Value:       "-",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "sample type: int8/16/32/64, uint8/16/32/64",
				Required:    true,
				Destination: &dtype,
			},
			&cli.StringFlag{
				Name:        "dim",
				Usage:       "comma-separated frame shape, e.g. 512,512",
				Required:    true,
				Destination: &dim,
			},
			&cli.IntFlag{
				Name:        "block",
				Usage:       "number of values grouped under one header",
				Value:       12,
				Destination: &block,
			},
			&cli.BoolFlag{
				Name:        "small",
				Usage:       "use the Small-unsigned mixed-radix path (unsigned dtypes only)",
				Destination: &small,
			},
			&cli.FloatFlag{
				Name:        "dop",
				Usage:       "fraction of the worker pool to use for background compression, 0-1",
				Destination: &dop,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := validDtype(dtype); err != nil {
				return err
			}
			dims, err := parseDims(dim)
			if err != nil {
				return err
			}
			in, err := openInput(input)
			if err != nil {
				return err
			}
			defer in.Close()
			raw, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return packDispatch(dtype, dims, int(block), small, pool.Parallelism(dop), raw, out)
		},
	}
}

func parseDims(s string) ([]uint64, error) {
	fields := strings.Split(s, ",")
	dims := make([]uint64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --dim %q: %w", s, err)
		}
		dims[i] = v
	}
	return dims, nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// packDispatch instantiates the generic container for the requested dtype,
// since a CLI flag can only select a Go type parameter at run time through
// an explicit switch.
func packDispatch(dtype string, dims []uint64, block int, small bool, dop pool.Parallelism, raw []byte, out io.Writer) error {
	switch dtype {
	case "int8":
		return packAs[int8](dims, block, small, dop, raw, out)
	case "int16":
		return packAs[int16](dims, block, small, dop, raw, out)
	case "int32":
		return packAs[int32](dims, block, small, dop, raw, out)
	case "int64":
		return packAs[int64](dims, block, small, dop, raw, out)
	case "uint8":
		return packAs[uint8](dims, block, small, dop, raw, out)
	case "uint16":
		return packAs[uint16](dims, block, small, dop, raw, out)
	case "uint32":
		return packAs[uint32](dims, block, small, dop, raw, out)
	case "uint64":
		return packAs[uint64](dims, block, small, dop, raw, out)
	}
	return fmt.Errorf("unreachable dtype %q", dtype)
}

func packAs[T trpx.Integer](dims []uint64, block int, small bool, dop pool.Parallelism, raw []byte, out io.Writer) error {
	c, err := trpx.New[T](dims, block, small)
	if err != nil {
		return err
	}
	c.SetParallelism(dop)

	elemSize := 0
	var zero T
	switch any(zero).(type) {
	case int8, uint8:
		elemSize = 1
	case int16, uint16:
		elemSize = 2
	case int32, uint32:
		elemSize = 4
	case int64, uint64:
		elemSize = 8
	}
	frameBytes := int(c.Size()) * elemSize
	if frameBytes == 0 {
		return fmt.Errorf("pack: frame size is zero, check --dim")
	}
	for off := 0; off+frameBytes <= len(raw); off += frameBytes {
		values, err := decodeLE[T](raw[off : off+frameBytes])
		if err != nil {
			return err
		}
		if err := c.PushBack(values); err != nil {
			return err
		}
	}
	return c.Write(out)
}

func decodeLE[T trpx.Integer](b []byte) ([]T, error) {
	var zero T
	var size int
	switch any(zero).(type) {
	case int8, uint8:
		size = 1
	case int16, uint16:
		size = 2
	case int32, uint32:
		size = 4
	case int64, uint64:
		size = 8
	}
	n := len(b) / size
	out := make([]T, n)
	for i := 0; i < n; i++ {
		chunk := b[i*size : (i+1)*size]
		switch p := any(&out[i]).(type) {
		case *int8:
			*p = int8(chunk[0])
		case *uint8:
			*p = chunk[0]
		case *int16:
			*p = int16(binary.LittleEndian.Uint16(chunk))
		case *uint16:
			*p = binary.LittleEndian.Uint16(chunk)
		case *int32:
			*p = int32(binary.LittleEndian.Uint32(chunk))
		case *uint32:
			*p = binary.LittleEndian.Uint32(chunk)
		case *int64:
			*p = int64(binary.LittleEndian.Uint64(chunk))
		case *uint64:
			*p = binary.LittleEndian.Uint64(chunk)
		}
	}
	return out, nil
}
