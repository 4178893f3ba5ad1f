package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bigkaa/regportal/internal/config"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "migrate", "create-user", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("команда %q не зарегистрирована", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != config.Version {
		t.Errorf("вывод = %q, ожидалась версия %q", got, config.Version)
	}
}

func TestCreateUserCmd_RequiresFlags(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-user", "--email", "user@gmail.com"})

	err := root.Execute()
	if err == nil {
		t.Fatal("ожидалась ошибка без --upn и --display-name")
	}
	if !strings.Contains(err.Error(), "upn") || !strings.Contains(err.Error(), "display-name") {
		t.Errorf("ошибка не называет обязательные флаги: %v", err)
	}
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version", "extra"})

	if err := root.Execute(); err == nil {
		t.Fatal("ожидалась ошибка для лишнего аргумента")
	}
}
