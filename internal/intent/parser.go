package intent

import "strings"

// Parse turns raw message text into an Intent. isReply indicates that
// the message replies to another chat message, which switches /tip and
// /send into their in-chat form. Parse is a pure function: it never
// touches storage or the network.
func Parse(text string, isReply bool) Intent {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Intent{Kind: KindNone}
	}

	cmd := strings.ToLower(fields[0])
	// Group chats address commands as /tip@BotName.
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "/start":
		return Intent{Kind: KindCreateAccount}

	case "/balance":
		return Intent{Kind: KindCheckBalance}

	case "/deposit":
		return Intent{Kind: KindDeposit}

	case "/backup":
		return Intent{Kind: KindBackup}

	case "/help":
		return Intent{Kind: KindHelp}

	case "/tip", "/send":
		if len(args) == 0 {
			return Intent{Kind: KindUnknown, Reason: ReasonMissingParams}
		}
		if isReply {
			return Intent{
				Kind:   KindTipInChat,
				Amount: args[0],
				Coin:   argOr(args, 1, DefaultCoin),
			}
		}
		return Intent{
			Kind:     KindTipUser,
			Username: strings.TrimPrefix(args[0], "@"),
			Amount:   argOr(args, 1, ""),
			Coin:     argOr(args, 2, DefaultCoin),
		}

	case "/withdraw":
		if len(args) != 2 {
			return Intent{Kind: KindUnknown, Reason: ReasonBadWithdraw}
		}
		return Intent{Kind: KindWithdraw, Address: args[0], Amount: args[1]}

	case "/donate":
		// With no amount the command is informational and shows the
		// donation address instead of sending.
		if len(args) == 1 {
			return Intent{Kind: KindDonate, Amount: args[0]}
		}
		return Intent{Kind: KindDonateInfo}
	}

	// Anything else is not for us. Mirrors the bot staying quiet in
	// group chats.
	return Intent{Kind: KindNone}
}

func argOr(args []string, idx int, fallback string) string {
	if idx < len(args) {
		return args[idx]
	}
	return fallback
}
