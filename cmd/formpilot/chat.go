package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tbxark/formpilot/agent"
	"github.com/tbxark/formpilot/types"
)

var (
	assistantText = color.New(color.FgGreen).SprintFunc()
	userPrompt    = color.New(color.FgCyan, color.Bold).SprintFunc()
	titleText     = color.New(color.Bold).SprintFunc()
	dimText       = color.New(color.Faint).SprintFunc()
	errorText     = color.New(color.FgRed).SprintFunc()
)

func runChat(cmd *cobra.Command, flags *rootFlags, conversation string, args []string) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	ctx := agent.WithConversation(cmd.Context(), conversation)
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	runner := adk.NewRunner(ctx, adk.RunnerConfig{
		Agent: agent.NewAgent(
			"FormPilot",
			"Helps elderly users fill administrative forms one field at a time",
			a.flow,
		),
	})
	out := cmd.OutOrStdout()
	say := func(input string) error {
		history, err := a.history.Append(ctx, schema.UserMessage(input))
		if err != nil {
			return err
		}
		iter := runner.Run(ctx, history)
		closed := false
		for {
			event, ok := iter.Next()
			if !ok {
				break
			}
			if event.Err != nil {
				return event.Err
			}
			if event.Output == nil || event.Output.MessageOutput == nil {
				continue
			}
			msg, err := event.Output.MessageOutput.GetMessage()
			if err != nil {
				return err
			}
			if _, err := a.history.Append(ctx, msg); err != nil {
				return err
			}
			if resp, ok := event.Output.CustomizedOutput.(*agent.Response); ok {
				closed = resp.Closed
				if resp.Result != nil && !resp.Result.Done && resp.Result.Stage == types.StageAsk {
					fmt.Fprintln(out, dimText(fmt.Sprintf("[%d/%d]", resp.Result.FieldIndex+1, resp.Result.TotalFields)))
				}
			}
			fmt.Fprintf(out, "%s %s\n", assistantText("Trợ lý:"), msg.Content)
		}
		if closed {
			return a.history.Clear(ctx)
		}
		return nil
	}

	fmt.Fprintln(out, titleText("Xin chào bác! Bác muốn điền mẫu đơn nào ạ? (gõ /huỷ để dừng)"))
	if len(args) > 0 {
		query := strings.Join(args, " ")
		fmt.Fprintf(out, "%s %s\n", userPrompt("Bác:"), query)
		if err := say(query); err != nil {
			return err
		}
	}
	reader := bufio.NewReader(cmd.InOrStdin())
	for {
		fmt.Fprint(out, userPrompt("Bác: "))
		input, err := reader.ReadString('\n')
		if errors.Is(err, io.EOF) && strings.TrimSpace(input) == "" {
			fmt.Fprintln(out)
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if err := say(strings.TrimSpace(input)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func runForms(cmd *cobra.Command, flags *rootFlags) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	out := cmd.OutOrStdout()
	for _, f := range a.engine.Forms() {
		fmt.Fprintf(out, "%s %s\n", titleText(f.Title), dimText("("+f.ID+")"))
		fmt.Fprintf(out, "  %d trường", f.Fields)
		if len(f.Aliases) > 0 {
			fmt.Fprintf(out, ", gọi là: %s", strings.Join(f.Aliases, ", "))
		}
		fmt.Fprintln(out)
	}
	return nil
}

func runPreview(cmd *cobra.Command, flags *rootFlags, sessionID string) error {
	cfg, err := flags.load(cmd)
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "memory" {
		fmt.Fprintln(os.Stderr, dimText("The memory store starts empty; use --store redis to read saved sessions."))
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	preview, err := a.engine.Preview(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleText(preview.FormTitle))
	fmt.Fprintln(out, agent.RenderPreview(preview))
	return nil
}
