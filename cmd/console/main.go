package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"photo-classifier/config"
	app "photo-classifier/internal/application"
	"photo-classifier/internal/container"
	"photo-classifier/internal/domain/entity"
)

const (
	consoleUserID = 1
	helpText      = `Commands:
  model [name]   show or switch model (MOBILENET_V2, COCO_SSD)
  open <path>    classify an image file
  rows           show the last result
  help           this text
  quit           exit`
)

func main() {
	err := mainImpl()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	appContainer, err := container.Build(cfg)
	if err != nil {
		return err
	}
	defer appContainer.Close()

	svc := appContainer.ClassificationService
	ctx := context.Background()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "> ",
		AutoComplete: completer(svc.Models()),
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	fmt.Println(helpText)
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF или Ctrl+C
			break
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		arg = strings.TrimSpace(arg)

		switch cmd {
		case "":
		case "quit", "exit":
			return nil
		case "help":
			fmt.Println(helpText)
		case "model":
			if arg == "" {
				user, err := svc.Rows(ctx, consoleUserID, 0)
				if err != nil {
					fmt.Println(err)
					continue
				}
				fmt.Println(user.Model.Title())
				continue
			}
			model, err := entity.ParseModelChoice(arg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			out, err := svc.SelectModel(ctx, consoleUserID, 0, model)
			printResult(out, err)
		case "open":
			// ошибка чтения файла оставляет прошлый результат как есть
			data, err := os.ReadFile(arg)
			if err != nil {
				fmt.Println(err)
				continue
			}
			out, err := svc.AcceptPhoto(ctx, consoleUserID, 0, data)
			printResult(out, err)
		case "rows":
			user, err := svc.Rows(ctx, consoleUserID, 0)
			if err != nil {
				fmt.Println(err)
				continue
			}
			printRows(user.Model, user.Rows)
		default:
			fmt.Println("unknown command, type help")
		}
	}
	return nil
}

func printResult(out *app.RunOutput, err error) {
	if err != nil {
		fmt.Println(err)
		return
	}
	if !out.Ran {
		fmt.Printf("model: %s (open an image to run it)\n", out.Model.Title())
		return
	}
	printRows(out.Model, out.Rows)
}

func printRows(model entity.ModelChoice, rows []entity.PredictionRow) {
	fmt.Printf("%s\n", model.Title())
	if len(rows) == 0 {
		fmt.Println("  (no rows)")
		return
	}
	for _, row := range rows {
		fmt.Printf("  %-3s %-30s %3d%%\n", row.ID, row.Description, row.Percent())
	}
}

func completer(models []entity.ModelChoice) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(models))
	for _, m := range models {
		items = append(items, readline.PcItem(string(m)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("model", items...),
		readline.PcItem("open"),
		readline.PcItem("rows"),
		readline.PcItem("help"),
		readline.PcItem("quit"),
	)
}
