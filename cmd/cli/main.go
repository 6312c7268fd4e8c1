package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"advisor-platform/pkg/config"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	warnStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F59E0B"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}
	switch os.Args[1] {
	case "version":
		fmt.Println("advisor-platform cli 0.1.0")
	case "health":
		runHealth()
	case "config":
		runConfig()
	case "tools":
		runTools()
	case "chat":
		runChat()
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: advisor <command>")
	fmt.Println("  version - 显示版本")
	fmt.Println("  health  - 服务健康检查（GET /api/health）")
	fmt.Println("  config  - 显示配置概要")
	fmt.Println("  tools   - 列出服务端注册的工具")
	fmt.Println("  chat    - 交互式对话（exit/quit 退出）")
}

func runConfig() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if cfg != nil {
		fmt.Printf("api.port=%d\n", cfg.API.Port)
		fmt.Printf("api.host=%s\n", cfg.API.Host)
		fmt.Printf("cache.type=%s\n", cfg.Cache.Type)
		fmt.Printf("feedback.type=%s\n", cfg.Feedback.Type)
	}
}

func runHealth() {
	out, err := getHealth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "健康检查失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(out))
}

func runTools() {
	tools, err := listTools()
	if err != nil {
		fmt.Fprintf(os.Stderr, "列出工具失败: %v\n", err)
		os.Exit(1)
	}
	for _, tl := range tools {
		name, _ := tl["name"].(string)
		desc, _ := tl["description"].(string)
		fmt.Printf("%-22s %s\n", name, desc)
	}
}

// runChat 交互式对话。会话状态（history 与 pending_write）全部保存在客户端，
// 每轮随请求回传，服务端不持久化任何对话内容。
func runChat() {
	fmt.Println(bannerStyle.Render("Portfolio Advisor 交互式对话（exit/quit 退出）"))
	var history []chatMessage
	var pending json.RawMessage
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		msg := strings.TrimSpace(line)
		if msg == "" {
			continue
		}
		if msg == "exit" || msg == "quit" {
			break
		}
		out, err := postChat(msg, history, pending)
		if err != nil {
			fmt.Fprintln(os.Stderr, errStyle.Render(fmt.Sprintf("请求失败: %v", err)))
			continue
		}
		fmt.Println(answerStyle.Render(out.Answer))
		fmt.Println(metaStyle.Render(formatMeta(out)))
		if out.AwaitingConfirmation {
			fmt.Println(warnStyle.Render("待确认：回复 yes 执行，回复 no 取消"))
		}
		history = append(history,
			chatMessage{Role: "user", Content: msg},
			chatMessage{Role: "assistant", Content: out.Answer},
		)
		pending = out.PendingWrite
	}
}

func formatMeta(out *chatResponse) string {
	meta := fmt.Sprintf("[%s] confidence=%.2f outcome=%s latency=%.2fs",
		out.QueryType, out.Confidence, out.Outcome, out.LatencySeconds)
	if len(out.ToolsUsed) > 0 {
		meta += " tools=" + strings.Join(out.ToolsUsed, ",")
	}
	return meta
}
