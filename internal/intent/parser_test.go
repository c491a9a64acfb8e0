package intent

import "testing"

func TestParseCommands(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		isReply bool
		want    Intent
	}{
		{
			name: "start",
			text: "/start",
			want: Intent{Kind: KindCreateAccount},
		},
		{
			name: "balance",
			text: "/balance",
			want: Intent{Kind: KindCheckBalance},
		},
		{
			name: "deposit",
			text: "/deposit",
			want: Intent{Kind: KindDeposit},
		},
		{
			name: "backup",
			text: "/backup",
			want: Intent{Kind: KindBackup},
		},
		{
			name: "help",
			text: "/help",
			want: Intent{Kind: KindHelp},
		},
		{
			name: "tip by username",
			text: "/tip @alice 0.5",
			want: Intent{Kind: KindTipUser, Username: "alice", Amount: "0.5", Coin: DefaultCoin},
		},
		{
			name: "tip without at sign",
			text: "/tip alice 0.5",
			want: Intent{Kind: KindTipUser, Username: "alice", Amount: "0.5", Coin: DefaultCoin},
		},
		{
			name: "tip with explicit coin",
			text: "/tip @alice 0.5 eth",
			want: Intent{Kind: KindTipUser, Username: "alice", Amount: "0.5", Coin: "eth"},
		},
		{
			name: "send is an alias of tip",
			text: "/send @bob 1",
			want: Intent{Kind: KindTipUser, Username: "bob", Amount: "1", Coin: DefaultCoin},
		},
		{
			name:    "tip as reply targets the replied-to author",
			text:    "/tip 0.25",
			isReply: true,
			want:    Intent{Kind: KindTipInChat, Amount: "0.25", Coin: DefaultCoin},
		},
		{
			name: "tip without arguments",
			text: "/tip",
			want: Intent{Kind: KindUnknown, Reason: ReasonMissingParams},
		},
		{
			name:    "tip without arguments in a reply",
			text:    "/send",
			isReply: true,
			want:    Intent{Kind: KindUnknown, Reason: ReasonMissingParams},
		},
		{
			name: "withdraw",
			text: "/withdraw 0xdeadbeef00000000000000000000000000000000 2.5",
			want: Intent{Kind: KindWithdraw, Address: "0xdeadbeef00000000000000000000000000000000", Amount: "2.5"},
		},
		{
			name: "withdraw with missing amount",
			text: "/withdraw 0xdeadbeef00000000000000000000000000000000",
			want: Intent{Kind: KindUnknown, Reason: ReasonBadWithdraw},
		},
		{
			name: "withdraw with extra arguments",
			text: "/withdraw 0xdead 1 2",
			want: Intent{Kind: KindUnknown, Reason: ReasonBadWithdraw},
		},
		{
			name: "donate with amount",
			text: "/donate 0.1",
			want: Intent{Kind: KindDonate, Amount: "0.1"},
		},
		{
			name: "donate without amount shows info",
			text: "/donate",
			want: Intent{Kind: KindDonateInfo},
		},
		{
			name: "donate with extra arguments shows info",
			text: "/donate 0.1 0.2",
			want: Intent{Kind: KindDonateInfo},
		},
		{
			name: "bot-addressed command in a group",
			text: "/tip@ChainTipBot @alice 1",
			want: Intent{Kind: KindTipUser, Username: "alice", Amount: "1", Coin: DefaultCoin},
		},
		{
			name: "uppercase command",
			text: "/BALANCE",
			want: Intent{Kind: KindCheckBalance},
		},
		{
			name: "plain chatter is ignored",
			text: "hello there",
			want: Intent{Kind: KindNone},
		},
		{
			name: "empty text is ignored",
			text: "   ",
			want: Intent{Kind: KindNone},
		},
		{
			name: "unknown slash command is ignored",
			text: "/weather",
			want: Intent{Kind: KindNone},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.text, tc.isReply)
			if got != tc.want {
				t.Fatalf("Parse(%q, %v) = %+v, want %+v", tc.text, tc.isReply, got, tc.want)
			}
		})
	}
}

func TestIsMonetary(t *testing.T) {
	monetary := []Kind{KindTipUser, KindTipInChat, KindWithdraw, KindDonate}
	for _, k := range monetary {
		if !(Intent{Kind: k}).IsMonetary() {
			t.Errorf("%s should be monetary", k)
		}
	}
	for _, k := range []Kind{KindNone, KindCreateAccount, KindCheckBalance, KindDeposit, KindBackup, KindHelp, KindDonateInfo, KindUnknown} {
		if (Intent{Kind: k}).IsMonetary() {
			t.Errorf("%s should not be monetary", k)
		}
	}
}
