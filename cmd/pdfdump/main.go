// Command pdfdump parses a PDF file and prints its trailer dictionary and
// every in-use object from the cross-reference table.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"pdfraw/ir/raw"
	"pdfraw/observability"
	"pdfraw/parser"
)

type options struct {
	pdfPath string
	verbose bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdfdump: %v\n", err)
		os.Exit(2)
	}
	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdfdump: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdfdump [flags] <pdf>\n")
		flag.PrintDefaults()
	}
	verbose := flag.Bool("v", false, "Log parsing progress to stderr")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		return options{}, fmt.Errorf("missing pdf path")
	}
	opts.pdfPath = flag.Arg(0)
	opts.verbose = *verbose
	return opts, nil
}

func run(opts options) error {
	data, err := os.ReadFile(opts.pdfPath)
	if err != nil {
		return err
	}

	cfg := parser.Config{}
	if opts.verbose {
		level := slog.LevelDebug
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		cfg.Logger = observability.NewSlogLogger(slog.New(handler))
	}

	doc, err := parser.NewDocumentParser(cfg).Parse(context.Background(), data)
	if err != nil {
		return err
	}

	fmt.Printf("%%PDF-%s, %d objects\n", doc.Version, len(doc.Objects))
	fmt.Printf("trailer %s\n", formatObject(doc.Trailer))

	nums := make([]int, 0, len(doc.Objects))
	for num := range doc.Objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	for _, num := range nums {
		fmt.Printf("%d 0 obj %s\n", num, formatObject(doc.Objects[num]))
	}
	return nil
}

func formatObject(obj raw.Object) string {
	switch o := obj.(type) {
	case raw.NullObj:
		return "null"
	case raw.BoolObj:
		return fmt.Sprintf("%v", o.Value())
	case raw.NumberObj:
		if o.IsInteger() {
			return fmt.Sprintf("%d", o.Int())
		}
		return fmt.Sprintf("%g", o.Float())
	case raw.NameObj:
		return "/" + o.Value()
	case raw.StringObj:
		if o.IsHex() {
			return fmt.Sprintf("<%X>", o.Value())
		}
		return fmt.Sprintf("(%s)", o.Value())
	case raw.RefObj:
		return o.Ref().String()
	case *raw.ArrayObj:
		parts := make([]string, 0, o.Len())
		for _, item := range o.Items {
			parts = append(parts, formatObject(item))
		}
		return "[" + strings.Join(parts, " ") + "]"
	case *raw.DictObj:
		var b strings.Builder
		b.WriteString("<<")
		for i, key := range o.Keys() {
			if i > 0 {
				b.WriteByte(' ')
			}
			val, _ := o.Get(key)
			fmt.Fprintf(&b, "/%s %s", key, formatObject(val))
		}
		b.WriteString(">>")
		return b.String()
	case *raw.StreamObj:
		return fmt.Sprintf("%s stream (%d bytes)", formatObject(o.Dictionary()), o.Length())
	default:
		return fmt.Sprintf("%v", obj)
	}
}
