package reply

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	xerrors "ChainTip/internal/errors"
)

// Template names recognised by the bot. The executor renders replies
// exclusively through this dictionary so operators can reword every
// message without touching code.
const (
	Welcome            = "welcome"
	Balance            = "balance"
	IncorrectAmount    = "incorrect_amount"
	IncorrectBalance   = "incorrect_balance"
	MissingParameters  = "insufficient_parameters"
	IncorrectWithdraw  = "incorrect_withdraw"
	UsernameError      = "username_error"
	WithdrawalResult   = "withdrawal_result"
	DonateResult       = "donate_result"
	DonateInfo         = "donate_info"
	TipReceived        = "tip_received"
	TipSent            = "tip_sent"
	Deposit            = "deposit"
	Backup             = "backup"
	Help               = "help"
	Failure            = "failure"
)

// defaults keep the bot usable when the dictionary file is absent or
// misses a key. Placeholders are fmt verbs.
var defaults = map[string]string{
	Welcome:           "Welcome! Your deposit address is <code>%s</code>.",
	Balance:           "Your balance: <b>%s</b>",
	IncorrectAmount:   "That amount does not look right.",
	IncorrectBalance:  "Insufficient balance: <b>%s</b>",
	MissingParameters: "Missing parameters. Try /help.",
	IncorrectWithdraw: "Usage: /withdraw &lt;address&gt; &lt;amount&gt;",
	UsernameError:     "I don't know that user yet.",
	WithdrawalResult:  "Sent <b>%s</b> to <code>%s</code>.\nTx: <code>%s</code>",
	DonateResult:      "Thank you for donating <b>%s</b>!\nTx: <code>%s</code>",
	DonateInfo:        "Donations keep the bot running: <code>%s</code>",
	TipReceived:       "You received <b>%s %s</b>!\nTx: <code>%s</code>",
	TipSent:           "You sent <b>%s %s</b>.\nTx: <code>%s</code>",
	Deposit:           "Your deposit address: <code>%s</code>",
	Backup:            "Your private key: <code>%s</code>\nKeep it secret.",
	Help:              "Commands: /start /balance /deposit /tip /send /withdraw /donate /backup /help",
	Failure:           "Something went wrong. Please try again later.",
}

// Templates is the immutable message dictionary injected into the
// executor at construction.
type Templates struct {
	messages map[string]string
}

// Defaults returns a dictionary with only the built-in messages.
func Defaults() *Templates {
	return &Templates{messages: defaults}
}

// Load reads a YAML dictionary file and overlays it on the defaults.
// An empty path returns the defaults.
func Load(path string) (*Templates, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "read template dictionary")
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(content, &overrides); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "parse template dictionary")
	}

	messages := make(map[string]string, len(defaults)+len(overrides))
	for name, text := range defaults {
		messages[name] = text
	}
	for name, text := range overrides {
		messages[name] = text
	}
	return &Templates{messages: messages}, nil
}

// Render formats the named template with the given arguments. Unknown
// names fall back to the generic failure message.
func (t *Templates) Render(name string, args ...any) string {
	text, ok := t.messages[name]
	if !ok {
		text = defaults[Failure]
	}
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}
