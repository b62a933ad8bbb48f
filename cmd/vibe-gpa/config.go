package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// knownKeys lists the settable configuration keys.
var knownKeys = []string{
	keyWorkers, keyMinIndividuals, keyMissingImpliesExcluded,
	keyFilter, keyTerms, keyDisabled, keyTermFrequency, keyAnnotationFrequency,
	keyCorrection, keyAlpha, keyCacheDir, keyClosureSize,
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-gpa configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-gpa.yaml.",
		Example: `  vibe-gpa config                               # show all config
  vibe-gpa config set mtc.correction bonferroni  # change the correction
  vibe-gpa config set mtc.terms HP:0001250,HP:0000252
  vibe-gpa config get mtc.alpha                  # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout(), viper.GetViper())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := runConfigSet(viper.GetViper(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), viper.GetViper(), args[0])
		},
	}
}

func runConfigShow(w io.Writer, v *viper.Viper) error {
	out, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// parseConfigValue converts a command-line value to the type of key.
func parseConfigValue(key, value string) (any, error) {
	switch key {
	case keyMissingImpliesExcluded:
		switch value {
		case "true", "yes", "on":
			return true, nil
		case "false", "no", "off":
			return false, nil
		}
		return nil, fmt.Errorf("%s: %q is not a boolean", key, value)
	case keyWorkers, keyMinIndividuals, keyClosureSize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, value)
		}
		return n, nil
	case keyTermFrequency, keyAnnotationFrequency, keyAlpha:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", key, value)
		}
		return f, nil
	case keyTerms, keyDisabled:
		if value == "" {
			return []string{}, nil
		}
		return strings.Split(value, ","), nil
	}
	return value, nil
}

func runConfigSet(v *viper.Viper, key, value string) (string, error) {
	if !isKnownKey(key) {
		keys := append([]string(nil), knownKeys...)
		sort.Strings(keys)
		return "", fmt.Errorf("unknown key %q (known: %s)", key, strings.Join(keys, ", "))
	}
	parsed, err := parseConfigValue(key, value)
	if err != nil {
		return "", err
	}
	v.Set(key, parsed)

	cfgFile := v.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-gpa.yaml")
	}

	if err := v.WriteConfigAs(cfgFile); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return cfgFile, nil
}

func runConfigGet(w io.Writer, v *viper.Viper, key string) error {
	val := v.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	_, err := fmt.Fprintln(w, val)
	return err
}

func isKnownKey(key string) bool {
	for _, k := range knownKeys {
		if k == key {
			return true
		}
	}
	return false
}
