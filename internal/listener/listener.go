package listener

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
)

// ErrClosed is returned by ReadLine once input is exhausted or interrupted.
var ErrClosed = errors.New("console closed")

// Console is the interactive terminal of the shell. Lines printed with
// AsyncPrintln from background goroutines are drawn above the prompt, or
// held back while a question is being asked.
type Console struct {
	rl  *readline.Instance
	in  *bufio.Reader
	out io.Writer

	mu        sync.Mutex
	prompt    string
	holdAsync bool
	heldLines []string
}

// New opens a readline console on the process terminal.
func New(prompt, historyFile string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("init terminal input: %w", err)
	}
	return &Console{rl: rl, prompt: prompt}, nil
}

// NewPlain reads lines from r and writes to w without line editing.
func NewPlain(r io.Reader, w io.Writer) *Console {
	return &Console{in: bufio.NewReader(r), out: w, prompt: "> "}
}

func (c *Console) Close() {
	if c.rl != nil {
		_ = c.rl.Close()
	}
}

func (c *Console) SetPrompt(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = p
	if c.rl != nil {
		c.rl.SetPrompt(p)
	}
}

// ReadLine returns the next trimmed line. Ctrl+C and Ctrl+D yield ErrClosed.
func (c *Console) ReadLine() (string, error) {
	if c.rl != nil {
		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return "", ErrClosed
			}
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *Console) printUnlocked(s string) {
	if c.rl == nil {
		fmt.Fprintln(c.out, s)
		return
	}
	_, _ = c.rl.Write([]byte("\r\n" + s + "\r\n"))
	c.rl.Refresh()
}

// Println prints s right away, even during a question.
func (c *Console) Println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printUnlocked(s)
}

// AsyncPrintln is for background output such as mission results.
func (c *Console) AsyncPrintln(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.holdAsync {
		c.heldLines = append(c.heldLines, s)
		return
	}
	c.printUnlocked(s)
}

func (c *Console) beginInteractive() {
	c.mu.Lock()
	c.holdAsync = true
	c.mu.Unlock()
}

func (c *Console) endInteractive() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdAsync = false
	for _, s := range c.heldLines {
		c.printUnlocked(s)
	}
	c.heldLines = nil
}

// GetConfirmation reads one lowercased answer under a temporary prompt.
func (c *Console) GetConfirmation(prompt string) (string, error) {
	c.mu.Lock()
	old := c.prompt
	c.prompt = prompt
	if c.rl != nil {
		c.rl.SetPrompt(prompt)
	}
	c.mu.Unlock()

	defer c.SetPrompt(old)
	line, err := c.ReadLine()
	return strings.ToLower(line), err
}

// AskYesNo repeats the question until it gets y/yes or n/no. A closed
// console counts as no.
func (c *Console) AskYesNo(question string) bool {
	c.beginInteractive()
	defer c.endInteractive()

	c.Println(question + " [y/n]")
	for {
		ans, err := c.GetConfirmation("> ")
		if err != nil {
			return false
		}
		switch ans {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		c.Println("Please answer y/n.")
	}
}
