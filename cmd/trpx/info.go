package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/lattice-imaging/trpx"
)

func infoCmd() *cli.Command {
	var (
		input string
		dtype string
	)

	return &cli.Command{
		Name:  "info",
		Usage: "print a .trpx file's header and compression statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to the .trpx file, or - for stdin",
				Value:       "-",
				Destination: &input,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "sample type the container was packed with",
				Required:    true,
				Destination: &dtype,
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
			return infoDispatch(dtype, in)
		},
	}
}

func infoDispatch(dtype string, in io.Reader) error {
	switch dtype {
	case "int8":
		return infoAs[int8](in)
	case "int16":
		return infoAs[int16](in)
	case "int32":
		return infoAs[int32](in)
	case "int64":
		return infoAs[int64](in)
	case "uint8":
		return infoAs[uint8](in)
	case "uint16":
		return infoAs[uint16](in)
	case "uint32":
		return infoAs[uint32](in)
	case "uint64":
		return infoAs[uint64](in)
	}
	return fmt.Errorf("unreachable dtype %q", dtype)
}

func infoAs[T trpx.Integer](in io.Reader) error {
	c, err := trpx.Open[T](in)
	if err != nil {
		return err
	}
	terseSize, err := c.TerseSize()
	if err != nil {
		return err
	}
	rawSize := int(c.Size()) * c.NumFrames() * (int(c.BitsPerVal()) / 8)
	fmt.Printf("frames:        %d\n", c.NumFrames())
	fmt.Printf("dim:           %v\n", c.Dim())
	fmt.Printf("values/frame:  %d\n", c.Size())
	fmt.Printf("bits/value:    %d\n", c.BitsPerVal())
	fmt.Printf("signed:        %v\n", c.IsSigned())
	fmt.Printf("small-unsigned:%v\n", c.Small())
	fmt.Printf("block size:    %d\n", c.BlockSize())
	fmt.Printf("terse bytes:   %d\n", terseSize)
	if rawSize > 0 {
		fmt.Printf("ratio:         %.3f\n", float64(terseSize)/float64(rawSize))
	}
	return nil
}
