package main

import "testing"

func TestConfigureCommand(t *testing.T) {
	cmd, err := configureCommand([]string{"-interval", "0.25", "-reverse", "-targets", "Foe, Bar"})
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Interval == nil || *cmd.Interval != 0.25 {
		t.Errorf("interval = %v", cmd.Interval)
	}
	if cmd.Reverse == nil || !*cmd.Reverse {
		t.Errorf("reverse = %v", cmd.Reverse)
	}
	if len(cmd.Targets) != 2 || cmd.Targets[1] != "Bar" {
		t.Errorf("targets = %v", cmd.Targets)
	}
	if cmd.Limit != nil {
		t.Errorf("limit should be unset, got %d", *cmd.Limit)
	}

	cmd, _ = configureCommand([]string{"-forward"})
	if cmd.Reverse == nil || *cmd.Reverse {
		t.Errorf("-forward should set reverse=false, got %v", cmd.Reverse)
	}

	if _, err := configureCommand([]string{"-reverse", "-forward"}); err == nil {
		t.Error("-reverse with -forward should fail")
	}
}
