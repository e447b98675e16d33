package telegram

import (
	"net/http"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
	"gopkg.in/telebot.v3/middleware"
)

type Settings struct {
	Token  string
	Client *http.Client
}

// Command 机器人命令，Reply 返回回复内容
type Command struct {
	Text        string
	Description string
	Reply       func() (string, error)
}

type Telegram struct {
	logger   *zap.Logger
	settings Settings
	client   *tele.Bot
	commands []Command
}

func NewTelegram(logger *zap.Logger, settings Settings) (*Telegram, error) {

	poller := &tele.LongPoller{Timeout: 10 * time.Second}

	client, err := tele.NewBot(tele.Settings{
		ParseMode: tele.ModeMarkdown,
		Token:     settings.Token,
		Poller:    poller,
		Client:    settings.Client,
	})
	if err != nil {
		return nil, err
	}

	client.Use(middleware.AutoRespond())

	bot := &Telegram{
		logger:   logger,
		settings: settings,
		client:   client,
	}
	client.Handle("/start", func(c tele.Context) error {
		return c.Send(bot.help())
	})

	return bot, nil
}

// Register 注册命令并同步到 telegram 的命令菜单，需要在 Start 之前调用
func (r *Telegram) Register(commands ...Command) error {
	if r == nil {
		return nil
	}
	r.commands = append(r.commands, commands...)

	menu := []tele.Command{
		{Text: "/start", Description: "显示可用命令"},
	}
	for _, command := range r.commands {
		menu = append(menu, tele.Command{Text: command.Text, Description: command.Description})
	}
	for _, command := range commands {
		r.handle(command)
	}
	return r.client.SetCommands(menu)
}

func (r *Telegram) handle(command Command) {
	r.client.Handle(command.Text, func(c tele.Context) error {
		msg, err := command.Reply()
		if err != nil {
			r.logger.Warn("telegram command failed", zap.String("command", command.Text), zap.Error(err))
			return c.Send("命令执行失败: " + EscapeMarkdown(err.Error()))
		}
		return c.Send(msg)
	})
}

func (r *Telegram) help() string {
	msg := "可用命令:\n"
	for _, command := range r.commands {
		msg += EscapeMarkdown(command.Text) + " - " + command.Description + "\n"
	}
	return msg
}

func (r *Telegram) Start() {
	if r == nil {
		return
	}
	go r.client.Start()
}

func (r *Telegram) Stop() {
	if r == nil {
		return
	}
	r.client.Stop()
}

// Notify 发送消息。未启用 telegram 时 r 为 nil，直接忽略。
func (r *Telegram) Notify(chatId, msg string) error {
	if r == nil {
		return nil
	}
	_chatId := cast.ToInt64(chatId)
	_, err := r.client.Send(tele.ChatID(_chatId), msg, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
	return err
}
