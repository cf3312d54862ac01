package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/batchfn/batch"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewCLI returns the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "batchfn",
		Short:         "Evaluate, differentiate and generate code for mapped functions",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "Log map construction and evaluation")

	rootCmd.AddCommand(
		newEvalCmd(),
		newCodegenCmd(),
		newSparsityCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.ExactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("batchfn version %s\n", version)
		},
	}
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a mapped function and print every instance",
		Args:  cobra.ExactArgs(0),
		RunE:  EvalHandler,
	}
	addMapFlags(cmd)
	addDerivativeFlags(cmd)
	cmd.Flags().StringSlice("input", nil, "Input nonzeros of all ports, in port order (default: a ramp)")
	return cmd
}

func newCodegenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codegen",
		Short: "Generate C source for a mapped function",
		Args:  cobra.ExactArgs(0),
		RunE:  CodegenHandler,
	}
	addMapFlags(cmd)
	addDerivativeFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Write the source to a file instead of stdout")
	cmd.Flags().String("export", "", "Exported C symbol (default: the map name)")
	return cmd
}

func newSparsityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sparsity",
		Short: "Print the Jacobian sparsity pattern of a mapped function",
		Args:  cobra.ExactArgs(0),
		RunE:  SparsityHandler,
	}
	addMapFlags(cmd)
	cmd.Flags().Bool("reverse", false, "Propagate dependencies backwards")
	return cmd
}

func addMapFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("function", "f", "sincos", "Function to map: "+strings.Join(demoNames(), ", "))
	cmd.Flags().IntP("count", "n", 4, "Number of instances")
	cmd.Flags().StringP("parallelization", "p", "serial", "Strategy: serial or openmp")
	cmd.Flags().Int("num-threads", 0, "Worker limit for openmp (default: all CPUs)")
}

func addDerivativeFlags(cmd *cobra.Command) {
	cmd.Flags().Int("fwd", 0, "Replace the map by its forward derivative with this many directions")
	cmd.Flags().Int("adj", 0, "Replace the map by its reverse derivative with this many directions")
	cmd.MarkFlagsMutuallyExclusive("fwd", "adj")
}

// buildMap assembles the map described by cmd's flags.
func buildMap(cmd *cobra.Command) (*batch.Map, error) {
	name, _ := cmd.Flags().GetString("function")
	n, _ := cmd.Flags().GetInt("count")
	p, _ := cmd.Flags().GetString("parallelization")

	f, err := newDemo(name)
	if err != nil {
		return nil, err
	}

	opts := batch.Options{}
	if threads, _ := cmd.Flags().GetInt("num-threads"); threads > 0 {
		opts["num_threads"] = threads
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts["verbose"] = true
	}

	m, err := batch.Create("map_"+name, p, f, n, opts)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Lookup("fwd") == nil {
		return m, nil
	}
	fwd, _ := cmd.Flags().GetInt("fwd")
	adj, _ := cmd.Flags().GetInt("adj")

	var d batch.Function
	switch {
	case fwd > 0:
		d, err = m.Forward(fwd)
	case adj > 0:
		d, err = m.Reverse(adj)
	default:
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	dm, ok := d.(*batch.Map)
	if !ok {
		return nil, fmt.Errorf("%s: derivative is not a map", m.Name())
	}
	return dm, nil
}

// parseInputs splits values over the map's input ports. Without values every
// nonzero k gets 0.1*(k+1).
func parseInputs(m *batch.Map, values []string) ([][]float64, error) {
	total := 0
	for j := 0; j < m.NIn(); j++ {
		total += m.NnzIn(j)
	}

	flat := make([]float64, total)
	switch len(values) {
	case 0:
		for k := range flat {
			flat[k] = 0.1 * float64(k+1)
		}
	case total:
		for k, s := range values {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, fmt.Errorf("input %d: %w", k, err)
			}
			flat[k] = v
		}
	default:
		return nil, fmt.Errorf("%s takes %d input values, got %d", m.Name(), total, len(values))
	}

	inputs := make([][]float64, m.NIn())
	for j := range inputs {
		inputs[j], flat = flat[:m.NnzIn(j)], flat[m.NnzIn(j):]
	}
	return inputs, nil
}

// EvalHandler evaluates the map and prints one row per instance.
func EvalHandler(cmd *cobra.Command, args []string) error {
	m, err := buildMap(cmd)
	if err != nil {
		return err
	}
	values, _ := cmd.Flags().GetStringSlice("input")
	inputs, err := parseInputs(m, values)
	if err != nil {
		return err
	}

	out, err := batch.Call(m, inputs...)
	if err != nil {
		return err
	}

	header := []string{"INSTANCE"}
	for j := 0; j < m.NIn(); j++ {
		header = append(header, fmt.Sprintf("IN%d", j))
	}
	for k := 0; k < m.NOut(); k++ {
		header = append(header, fmt.Sprintf("OUT%d", k))
	}

	var data [][]string
	for i := 0; i < m.N(); i++ {
		row := []string{strconv.Itoa(i)}
		for _, in := range inputs {
			row = append(row, formatInstance(in, i, m.N()))
		}
		for _, res := range out {
			row = append(row, formatInstance(res, i, m.N()))
		}
		data = append(data, row)
	}

	writeTable(cmd.OutOrStdout(), header, data)
	return nil
}

// formatInstance renders the nonzeros of instance i of a port holding n
// instances.
func formatInstance(port []float64, i, n int) string {
	sz := len(port) / n
	parts := make([]string, sz)
	for k, v := range port[i*sz : (i+1)*sz] {
		parts[k] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return strings.Join(parts, " ")
}

// CodegenHandler prints or writes the C source of the map.
func CodegenHandler(cmd *cobra.Command, args []string) error {
	m, err := buildMap(cmd)
	if err != nil {
		return err
	}
	export, _ := cmd.Flags().GetString("export")
	if export == "" {
		export = m.Name()
	}

	src, err := batch.Generate(m, export)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), src)
		return err
	}
	if err := os.WriteFile(output, []byte(src), 0o644); err != nil {
		return err
	}
	slog.Info("wrote source", "path", output, "bytes", len(src))
	return nil
}

// SparsityHandler prints a summary of the map followed by its pattern.
func SparsityHandler(cmd *cobra.Command, args []string) error {
	m, err := buildMap(cmd)
	if err != nil {
		return err
	}

	sweep := batch.Sparsity
	if reverse, _ := cmd.Flags().GetBool("reverse"); reverse {
		sweep = batch.ReverseSparsity
	}
	p, err := sweep(m)
	if err != nil {
		return err
	}

	info := m.Info()
	writeTable(cmd.OutOrStdout(),
		[]string{"NAME", "FUNCTION", "N", "PARALLELIZATION", "CONCURRENT", "WORK", "NNZ"},
		[][]string{{
			info.Name,
			info.Function,
			strconv.Itoa(info.N),
			info.Parallelization.String(),
			strconv.FormatBool(info.Concurrent),
			info.WorkSize.String(),
			strconv.Itoa(p.Nnz()),
		}},
	)
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprint(cmd.OutOrStdout(), p.String())
	return nil
}

func writeTable(w io.Writer, header []string, data [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
