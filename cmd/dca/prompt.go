package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter 从终端读取输入，密码输入不回显。
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter() *prompter {
	return &prompter{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		fd:  int(os.Stdin.Fd()),
	}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	text, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *prompter) secret(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	raw, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.line(label + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
