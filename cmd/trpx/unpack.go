package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/lattice-imaging/trpx"
)

func unpackCmd() *cli.Command {
	var (
		input  string
		output string
		dtype  string
		frame  int64
	)

	return &cli.Command{
		Name:  "unpack",
		Usage: "decompress a .trpx file back into raw little-endian samples",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to the .trpx file, or - for stdin",
				Value:       "-",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path to write raw samples, or - for stdout",
				Value:       "-",
				Destination: &output,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "sample type the container was packed with",
				Required:    true,
				Destination: &dtype,
			},
			&cli.IntFlag{
				Name:        "frame",
				Usage:       "frame index to extract, or -1 for every frame concatenated",
				Value:       -1,
				Destination: &frame,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := validDtype(dtype); err != nil {
				return err
			}
			in, err := openInput(input)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return unpackDispatch(dtype, int(frame), in, out)
		},
	}
}

func unpackDispatch(dtype string, frame int, in io.Reader, out io.Writer) error {
	switch dtype {
	case "int8":
		return unpackAs[int8](frame, in, out)
	case "int16":
		return unpackAs[int16](frame, in, out)
	case "int32":
		return unpackAs[int32](frame, in, out)
	case "int64":
		return unpackAs[int64](frame, in, out)
	case "uint8":
		return unpackAs[uint8](frame, in, out)
	case "uint16":
		return unpackAs[uint16](frame, in, out)
	case "uint32":
		return unpackAs[uint32](frame, in, out)
	case "uint64":
		return unpackAs[uint64](frame, in, out)
	}
	return fmt.Errorf("unreachable dtype %q", dtype)
}

func unpackAs[T trpx.Integer](frame int, in io.Reader, out io.Writer) error {
	c, err := trpx.Open[T](in)
	if err != nil {
		return err
	}
	if frame >= 0 {
		values, err := c.At(frame)
		if err != nil {
			return err
		}
		return encodeLE(values, out)
	}
	for i := 0; i < c.NumFrames(); i++ {
		values, err := c.At(i)
		if err != nil {
			return err
		}
		if err := encodeLE(values, out); err != nil {
			return err
		}
	}
	return nil
}

func encodeLE[T trpx.Integer](values []T, out io.Writer) error {
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
	buf := make([]byte, len(values)*size)
	for i, v := range values {
		chunk := buf[i*size : (i+1)*size]
		switch x := any(v).(type) {
		case int8:
			chunk[0] = byte(x)
		case uint8:
			chunk[0] = x
		case int16:
			binary.LittleEndian.PutUint16(chunk, uint16(x))
		case uint16:
			binary.LittleEndian.PutUint16(chunk, x)
		case int32:
			binary.LittleEndian.PutUint32(chunk, uint32(x))
		case uint32:
			binary.LittleEndian.PutUint32(chunk, x)
		case int64:
			binary.LittleEndian.PutUint64(chunk, uint64(x))
		case uint64:
			binary.LittleEndian.PutUint64(chunk, x)
		}
	}
	_, err := out.Write(buf)
	return err
}
