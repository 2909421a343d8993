package shell

import (
	"bytes"
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/deploymenttheory/go-simplefs/internal/logger"
)

// New builds an interactive shell bound to the session
func New(s *Session, prompt string) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(prompt)
	sh.Set("session", s)

	for _, cmd := range Commands() {
		cmd := cmd
		help := cmd.Help
		if cmd.Usage != "" {
			help = fmt.Sprintf("%s (%s %s)", cmd.Help, cmd.Name, cmd.Usage)
		}
		sh.AddCmd(&ishell.Cmd{
			Name: cmd.Name,
			Help: help,
			Func: func(c *ishell.Context) {
				run(c, cmd.Name)
			},
		})
	}
	return sh
}

func run(c *ishell.Context, name string) {
	s := c.Get("session").(*Session)

	var out bytes.Buffer
	err := s.Execute(&out, name, c.Args)
	if out.Len() > 0 {
		c.Print(out.String())
	}
	if err != nil {
		logger.LogDebug("Shell command failed", map[string]interface{}{"command": name, "error": err.Error()})
		c.Printf("%s failed: %v\n", name, err)
	}
}
