// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command entropy computes symbol statistics for
// every document in a directory and codes each one
// with Huffman, Shannon-Fano and LZ77.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/SnellerInc/entropy/pipeline"
)

var (
	dashc string
	dasho string
	dashw int
	dashj int
	dashp string
	dashb bool
	dashv bool
	dashh bool
)

func init() {
	flag.StringVar(&dashc, "c", "", "configuration file (.json, .yaml or .yml)")
	flag.StringVar(&dasho, "o", pipeline.DefaultOutput, "output directory")
	flag.IntVar(&dashw, "w", 0, "LZ77 window size (default from config, or 512)")
	flag.IntVar(&dashj, "j", 0, "number of files processed in parallel (default GOMAXPROCS)")
	flag.StringVar(&dashp, "p", "", "only process files whose name matches this pattern")
	flag.BoolVar(&dashb, "b", false, "measure zstd, s2 and huff0 baselines")
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashh, "h", false, "show usage help")
}

func exitf(f string, args ...any) {
	logf(f, args...)
	os.Exit(1)
}

func logf(f string, args ...any) {
	if f == "" || f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
}

func config() *pipeline.Config {
	var conf *pipeline.Config
	if dashc != "" {
		c, err := pipeline.OpenConfig(dashc)
		if err != nil {
			exitf("%s", err)
		}
		conf = c
	} else {
		c := pipeline.DefaultConfig()
		conf = &c
	}
	// flags given explicitly win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			conf.Output = dasho
		case "w":
			conf.Window = dashw
		case "j":
			conf.Parallel = dashj
		case "p":
			conf.Pattern = dashp
		case "b":
			conf.Baselines = dashb
		}
	})
	if dashv {
		conf.Logf = logf
	}
	if err := conf.Validate(); err != nil {
		exitf("%s", err)
	}
	return conf
}

func summarize(sum *pipeline.Summary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file\tsymbols\tentropy\thuffman\tshannon-fano\tlz77 ratio\t\n")
	for _, rep := range sum.Reports {
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%.4f\t%.4f\t%.3f\t\n",
			rep.Name, rep.Stats.TotalSymbols, rep.Stats.TotalEntropy,
			rep.Huffman.AverageLength, rep.ShannonFano.AverageLength, rep.LZ77.Ratio)
	}
	tw.Flush()
	fmt.Printf("%d files, average entropy %.4f bits/symbol, run %s (%s)\n",
		sum.Averages.General.Files, sum.Averages.General.TotalEntropy, sum.Run, sum.Elapsed)
}

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 1 || dashh {
		fmt.Fprintf(os.Stderr, "usage:\n")
		fmt.Fprintf(os.Stderr, "    %s [flags] <directory>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "        analyze and encode every document in <directory>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil {
		exitf("%s", err)
	}
	if !info.IsDir() {
		exitf("%s is not a directory", dir)
	}

	r, err := pipeline.NewRunner(config())
	if err != nil {
		exitf("%s", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	sum, err := r.Run(ctx, dir)
	if err != nil {
		exitf("%s", err)
	}
	summarize(sum)
	if err := sum.Err(); err != nil {
		exitf("%s", err)
	}
}
