package bot

import (
	"fmt"
	"strings"
)

// Formatter renders bot replies for a platform.
type Formatter interface {
	Balance(balance int64) string
	Received(amount, balance int64) string
	Sent(token string) string
	FundInvoice(invoice, quoteID string) string
	Claimed(amount, balance int64) string
	NotPaidYet() string
	History(lines []string) string
	Error(message string) string
	Usage(command, example string) string
	InsufficientBalance(required, available int64) string
}

// PlainFormatter renders plain text. Works everywhere.
type PlainFormatter struct{}

func (PlainFormatter) Balance(balance int64) string {
	return fmt.Sprintf("Balance: %d sats", balance)
}

func (PlainFormatter) Received(amount, balance int64) string {
	return fmt.Sprintf("Received %d sats. Balance: %d sats", amount, balance)
}

func (PlainFormatter) Sent(token string) string {
	return token
}

func (PlainFormatter) FundInvoice(invoice, quoteID string) string {
	return fmt.Sprintf("Pay this invoice:\n%s\n\nThen: /claim %s", invoice, quoteID)
}

func (PlainFormatter) Claimed(amount, balance int64) string {
	return fmt.Sprintf("Minted %d sats! Balance: %d sats", amount, balance)
}

func (PlainFormatter) NotPaidYet() string {
	return "Not paid yet. Try again after paying."
}

func (PlainFormatter) History(lines []string) string {
	return strings.Join(lines, "\n")
}

func (PlainFormatter) Error(message string) string {
	return message
}

func (PlainFormatter) Usage(command, example string) string {
	return fmt.Sprintf("Usage: /%s %s", command, example)
}

func (PlainFormatter) InsufficientBalance(required, available int64) string {
	return fmt.Sprintf("Need %d sats, have %d.", required, available)
}

// MarkdownFormatter wraps tokens and invoices in code spans. Good for
// Telegram, Discord, Matrix.
type MarkdownFormatter struct {
	PlainFormatter
}

func (MarkdownFormatter) Sent(token string) string {
	return "`" + token + "`"
}

func (MarkdownFormatter) FundInvoice(invoice, quoteID string) string {
	return fmt.Sprintf("Pay this invoice:\n`%s`\n\nThen: /claim `%s`", invoice, quoteID)
}

// SlackFormatter uses triple-backtick code blocks (Slack mrkdwn).
type SlackFormatter struct {
	PlainFormatter
}

func (SlackFormatter) Sent(token string) string {
	return "```" + token + "```"
}

func (SlackFormatter) FundInvoice(invoice, quoteID string) string {
	return fmt.Sprintf("Pay this invoice:\n```%s```\nThen: `/claim %s`", invoice, quoteID)
}
