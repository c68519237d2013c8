package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"sage/internal/config"
	"sage/internal/ipc"
)

const usage = `usage: sage-ctl [flags] <command> [args]

commands:
  trigger            record one question from the microphone
  ask <text>         ask as if spoken after pressing the mic button
  hear <text>        feed text as if overheard in passive mode
  file <path>        transcribe an audio file and ask
  settings           save settings given by --passive/--wake/--speak/--api-key
  clear-key          forget the API key
  status             show current settings

flags:
`

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	timeout := cli.DurationP("timeout", "t", 2*time.Minute, "How long to wait for the daemon")
	passive := cli.Bool("passive", false, "Passive listening on/off")
	wake := cli.String("wake", "", "Wake word (empty = none)")
	speak := cli.Bool("speak", false, "Speak replies on/off")
	apiKey := cli.String("api-key", "", "OpenAI API key")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		cli.Usage()
		os.Exit(2)
	}

	msg := ipc.ControlMessage{Cmd: args[0]}
	rest := strings.Join(args[1:], " ")

	switch msg.Cmd {
	case ipc.CmdAsk, ipc.CmdHear:
		msg.Text = rest
	case ipc.CmdFile:
		msg.Path = rest
	case ipc.CmdSettings:
		var p config.Patch
		if cli.CommandLine.Changed("passive") {
			p.PassiveMode = passive
		}
		if cli.CommandLine.Changed("wake") {
			p.WakeWord = wake
		}
		if cli.CommandLine.Changed("speak") {
			p.SpeakReplies = speak
		}
		if cli.CommandLine.Changed("api-key") {
			p.APIKey = apiKey
		}
		msg.Settings = &p
	}

	reply, err := ipc.SendCommand(*socket, msg, *timeout)
	if err != nil {
		fmt.Println("sage-daemon not running:", err)
		os.Exit(1)
	}

	if reply.Text != "" {
		fmt.Println(reply.Text)
	} else if reply.Kind != "" {
		fmt.Println("(" + reply.Kind + ")")
	}
	if !reply.OK {
		os.Exit(1)
	}
}
