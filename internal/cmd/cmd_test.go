package cmd

import (
	"testing"
)

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "status", "reset", "analyze", "mdp", "settings", "doctor", "version"}

	registered := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}

	for _, name := range want {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, flag := range []string{"dry-run", "yes", "captured"} {
		if runCmd.Flags().Lookup(flag) == nil {
			t.Errorf("run command missing --%s", flag)
		}
	}
}

func TestStatusWatchFlag(t *testing.T) {
	if statusCmd.Flags().Lookup("watch") == nil {
		t.Error("status command missing --watch")
	}
}

func TestGlobalFlags(t *testing.T) {
	for _, flag := range []string{"config", "workdir"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("root command missing --%s", flag)
		}
	}
}

func TestRunArgsValidation(t *testing.T) {
	if err := runCmd.Args(runCmd, []string{}); err == nil {
		t.Error("run accepted zero arguments")
	}
	if err := runCmd.Args(runCmd, []string{"1", "2"}); err == nil {
		t.Error("run accepted two arguments")
	}
	if err := runCmd.Args(runCmd, []string{"all"}); err != nil {
		t.Errorf("run rejected a single argument: %v", err)
	}
}
