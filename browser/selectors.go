package browser

// Selector locates one element. CSS is matched across open shadow roots;
// when Text is set the element must also show that text, either as content
// or as its aria-label or placeholder.
type Selector struct {
	CSS  string `toml:"css"`
	Text string `toml:"text,omitempty"`
}

// Selectors are the hooks the driver relies on in the target page.
type Selectors struct {
	Login       Selector `toml:"login"`
	Password    Selector `toml:"password"`
	Submit      Selector `toml:"submit"`
	OTP         Selector `toml:"otp"`
	ConfirmOTP  Selector `toml:"confirm_otp"`
	CloseDialog Selector `toml:"close_dialog"`
	ChatIcon    Selector `toml:"chat_icon"`
	ChatTab     Selector `toml:"chat_tab"`
	Textbox     Selector `toml:"textbox"`
	SendButton  Selector `toml:"send_button"`

	// Messages is the host element of the message list.
	Messages string `toml:"messages"`
	// MessageItems are the rendered turns inside Messages; the class of
	// the last one is the response marker.
	MessageItems string `toml:"message_items"`
	// MessageText matches text paragraphs; the last one is the reply.
	MessageText string `toml:"message_text"`
	// Button matches quick-reply buttons.
	Button string `toml:"button"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Login:        Selector{CSS: "input", Text: "Identyfikator"},
		Password:     Selector{CSS: "input", Text: "Hasło"},
		Submit:       Selector{CSS: "button", Text: "Zaloguj się"},
		OTP:          Selector{CSS: "input", Text: "kod SMS"},
		ConfirmOTP:   Selector{CSS: `[data-test-id="editbox-confirm-btn"]`},
		CloseDialog:  Selector{CSS: "button", Text: "Zamknij"},
		ChatIcon:     Selector{CSS: `[data-test-id="chat:chat-icon"]`},
		ChatTab:      Selector{CSS: `[role="tab"]`, Text: "napisz na czacie"},
		Textbox:      Selector{CSS: `[data-test-id="chat:textbox"]`},
		SendButton:   Selector{CSS: `[data-test-id="chat:textbox-send"]`},
		Messages:     "mbank-chat-messages-container",
		MessageItems: "#scrollable-container div",
		MessageText:  "p",
		Button:       "chat-button",
	}
}

// withDefaults fills every empty selector from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	pick := func(v *Selector, def Selector) {
		if v.CSS == "" {
			*v = def
		}
	}
	pick(&s.Login, d.Login)
	pick(&s.Password, d.Password)
	pick(&s.Submit, d.Submit)
	pick(&s.OTP, d.OTP)
	pick(&s.ConfirmOTP, d.ConfirmOTP)
	pick(&s.CloseDialog, d.CloseDialog)
	pick(&s.ChatIcon, d.ChatIcon)
	pick(&s.ChatTab, d.ChatTab)
	pick(&s.Textbox, d.Textbox)
	pick(&s.SendButton, d.SendButton)
	if s.Messages == "" {
		s.Messages = d.Messages
	}
	if s.MessageItems == "" {
		s.MessageItems = d.MessageItems
	}
	if s.MessageText == "" {
		s.MessageText = d.MessageText
	}
	if s.Button == "" {
		s.Button = d.Button
	}
	return s
}
