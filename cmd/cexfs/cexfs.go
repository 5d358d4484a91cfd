/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Apr 20 16:50:02 2018 mstenber
 * Last modified: Mon Apr 23 10:21:44 2018 mstenber
 * Edit time:     47 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime/pprof"
	"strconv"

	ucodec "github.com/ugorji/go/codec"

	"github.com/fingon/go-cexfs/codec"
	"github.com/fingon/go-cexfs/mlog"
	"github.com/fingon/go-cexfs/storage/factory"
	"github.com/fingon/go-cexfs/volume"
)

type command struct {
	args  string
	nargs int
	run   func(v *volume.Volume, args []uint64, file string) error
}

var commands = map[string]command{
	"put": {"TARGET FILE", 2, func(v *volume.Volume, args []uint64, file string) error {
		var r io.Reader = os.Stdin
		if file != "-" {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		// MaxExtentSize at a time keeps memory use flat
		buf := make([]byte, v.Configuration().MaxExtentSize)
		ofs := uint64(0)
		for {
			n, err := io.ReadFull(r, buf)
			if n > 0 {
				if werr := v.Write(args[0], ofs, buf[:n]); werr != nil {
					return werr
				}
				ofs += uint64(n)
			}
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			if err != nil {
				return err
			}
		}
		return v.Truncate(args[0], ofs)
	}},
	"get": {"TARGET", 1, func(v *volume.Volume, args []uint64, file string) error {
		size := v.Size(args[0])
		step := v.Configuration().MaxExtentSize
		for ofs := uint64(0); ofs < size; ofs += step {
			b, err := v.Read(args[0], ofs, step)
			if err != nil {
				return err
			}
			if _, err = os.Stdout.Write(b); err != nil {
				return err
			}
		}
		return nil
	}},
	"punch": {"TARGET START END", 3, func(v *volume.Volume, args []uint64, file string) error {
		return v.Punch(args[0], args[1], args[2])
	}},
	"truncate": {"TARGET SIZE", 2, func(v *volume.Volume, args []uint64, file string) error {
		return v.Truncate(args[0], args[1])
	}},
	"stat": {"", 0, func(v *volume.Volume, args []uint64, file string) error {
		h := &ucodec.JsonHandle{Indent: 2}
		err := ucodec.NewEncoder(os.Stdout, h).Encode(v.Stats())
		fmt.Println()
		return err
	}},
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [flags] COMMAND [ARGS]\n\nCommands:\n", os.Args[0])
		for name, c := range commands {
			fmt.Fprintf(os.Stderr, "  %s %s\n", name, c.args)
		}
		fmt.Fprintf(os.Stderr, "\n")
		flag.PrintDefaults()
	}
	dir := flag.String("dir", "", "Volume directory")
	backendp := flag.String("backend", "bolt",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	sector := flag.Uint64("sector", volume.DefaultSectorSize, "Sector size (new volumes only)")
	chunksize := flag.Uint64("chunksize", volume.DefaultChunkSize, "Chunk size (new volumes only)")
	devicesize := flag.Uint64("devicesize", volume.DefaultDeviceSize, "Device size (new volumes only)")
	level := flag.Int("level", 0, "zlib compression level 1-9 (0 = default 3; see -compression none)")
	compression := flag.String("compression", "zlib", "Compression of new extents (zlib or none)")
	memlimit := flag.Int64("memlimit", 0, "Working memory limit in bytes (0 = none)")
	cpuprofile := flag.String("cpuprofile", "", "CPU profile file")

	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	c, ok := commands[flag.Arg(0)]
	if !ok || flag.NArg() != 1+c.nargs {
		flag.Usage()
		os.Exit(1)
	}
	var args []uint64
	var file string
	for i, s := range flag.Args()[1:] {
		if flag.Arg(0) == "put" && i == 1 {
			file = s
			continue
		}
		v, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			log.Fatalf("Invalid argument %q: %v", s, err)
		}
		args = append(args, v)
	}

	ct, err := codec.ParseCompressionType(*compression)
	if err != nil {
		log.Fatal(err)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	config := volume.Configuration{Directory: *dir, BackendName: *backendp,
		SectorSize: *sector, ChunkSize: *chunksize, DeviceSize: *devicesize,
		CompressionLevel: *level, NoCompress: ct == codec.CompressionType_NONE,
		MemoryLimit: *memlimit}
	v, err := volume.Open(config)
	if err != nil {
		log.Fatal(err)
	}
	mlog.Printf2("cmd/cexfs/cexfs", "running %s %v", flag.Arg(0), args)
	err = c.run(v, args, file)
	v.Close()
	if err != nil {
		log.Printf("%s failed: %v (%v)", flag.Arg(0), err, volume.Errno(err))
		os.Exit(1)
	}
}
