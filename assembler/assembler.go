package main

import (
	"io"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	dubcc "dubcc/shared"
	"dubcc/shared/assembler"
	"dubcc/shared/cli"
)

var (
	outputPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "assembler <input>.s -o <output>",
	Short: "Assemble one source file into a text object file",
	Long: `assembler runs both passes over one assembly source and writes the
resulting object module (symbol table, section bytes and relocations) in
the text interchange format read by linker and objdump.`,
	Args: cli.Args(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if outputPath == "" {
			return &dubcc.Error{Kind: dubcc.ErrUsage, Name: cmd.UseLine()}
		}
		return run(args[0], outputPath)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "object file to write")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "dump the symbol and relocation tables to stderr")
}

func run(input, output string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	obj, err := assembler.Assemble(input, f)
	if err != nil {
		return err
	}
	if debug {
		dump := cli.Dumper()
		dump.Println(obj.Symbols.All())
		dump.Println(obj.Relocations.All())
	}
	glog.V(1).Infof("writing %s", output)
	return cli.WriteOutput(output, func(w io.Writer) error {
		return obj.Write(w)
	})
}

func main() {
	cli.Execute(rootCmd, "debug")
}
