package main

import (
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	dubcc "dubcc/shared"
	"dubcc/shared/cli"
	"dubcc/shared/dulf"
	"dubcc/shared/linker"
)

var (
	outputPath string
	hexOutput  bool
	debug      bool
	placeArgs  []string
)

var placeRe = regexp.MustCompile(`^(\w+)@(\d+|0x[0-9a-fA-F]+)$`)

var rootCmd = &cobra.Command{
	Use:   "linker [-hex] [-place=<section>@<address>]... -o <output> <input>...",
	Short: "Link text object files into one memory image",
	Long: `linker merges the symbol tables of its inputs, lays their sections
out in memory, patches every relocation and writes the result, as a hex
listing with -hex or otherwise as a binary image of address-tagged
blocks.`,
	Args: cli.Args(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return &dubcc.Error{Kind: dubcc.ErrUsage, Name: cmd.UseLine()}
		}
		places, err := parsePlaces(placeArgs)
		if err != nil {
			return err
		}
		return run(args, places)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "file to write the linked image to")
	rootCmd.Flags().BoolVar(&hexOutput, "hex", false, "write a hex listing instead of a binary image")
	rootCmd.Flags().StringArrayVar(&placeArgs, "place", nil, "place section at address, as <section>@<address>")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "dump the merged symbol table to stderr")
}

// parsePlaces turns section@address arguments into a placement map.
// The first placement of a section wins; later ones are logged and ignored.
func parsePlaces(args []string) (map[string]uint32, error) {
	places := make(map[string]uint32, len(args))
	for _, arg := range args {
		m := placeRe.FindStringSubmatch(arg)
		if m == nil {
			return nil, &dubcc.Error{Kind: dubcc.ErrUsage, Name: "-place=" + arg}
		}
		digits, base := m[2], 10
		if hex, ok := strings.CutPrefix(digits, "0x"); ok {
			digits, base = hex, 16
		}
		addr, err := strconv.ParseUint(digits, base, 32)
		if err != nil {
			return nil, &dubcc.Error{Kind: dubcc.ErrUsage, Name: "-place=" + arg, Err: err}
		}
		if prev, dup := places[m[1]]; dup {
			glog.Warningf("-place=%s ignored, %s already placed at %#x", arg, m[1], prev)
			continue
		}
		places[m[1]] = uint32(addr)
	}
	return places, nil
}

func run(inputs []string, places map[string]uint32) error {
	objects := make([]*dulf.ObjectFile, 0, len(inputs))
	for _, path := range inputs {
		obj, err := dulf.ReadFile(path)
		if err != nil {
			return err
		}
		objects = append(objects, obj)
	}

	exe, err := linker.MakeLinker(places).GenerateExecutable(objects)
	if err != nil {
		return err
	}
	if debug {
		cli.Dumper().Println(exe.Symbols.All())
	}

	glog.V(1).Infof("writing %s", outputPath)
	return cli.WriteOutput(outputPath, func(w io.Writer) error {
		if hexOutput {
			return exe.WriteHex(w)
		}
		return exe.WriteImage(w)
	})
}

func main() {
	cli.Execute(rootCmd, "hex", "place", "debug")
}
