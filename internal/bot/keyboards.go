package bot

import (
	"strings"

	"github.com/Habibullo22/Kinouz/internal/transport"
)

// Menu button labels. Trigger matching is literal, so these strings are part
// of the bot's behavior, not just presentation.
const (
	btnGetMovie      = "🎬 Get movie"
	btnMoviesChannel = "📢 Movies channel"
	btnHelp          = "ℹ️ Help"
	btnAddMovie      = "➕ Add movie"
	btnDeleteMovie   = "❌ Delete movie"
	btnFindMovie     = "🔎 Find movie"
	btnStats         = "📊 Stats"
	btnBroadcast     = "📢 Broadcast"
)

const checkJoinData = "check_join"

func userMenu() *transport.Markup {
	return &transport.Markup{
		Resize: true,
		Reply: [][]string{
			{btnGetMovie, btnMoviesChannel},
			{btnHelp},
		},
	}
}

func adminMenu() *transport.Markup {
	return &transport.Markup{
		Resize: true,
		Reply: [][]string{
			{btnGetMovie, btnMoviesChannel},
			{btnHelp},
			{btnAddMovie, btnDeleteMovie},
			{btnFindMovie},
			{btnStats, btnBroadcast},
		},
	}
}

// joinMarkup renders one URL button per missing channel (public "@" channels
// only; private channels can't be linked by username) plus the re-check button.
func joinMarkup(missing []string) *transport.Markup {
	m := &transport.Markup{}
	for _, ch := range missing {
		if name, ok := strings.CutPrefix(ch, "@"); ok {
			m.Inline = append(m.Inline, []transport.InlineButton{
				{Text: "➕ " + ch, URL: "https://t.me/" + name},
			})
		}
	}
	m.Inline = append(m.Inline, []transport.InlineButton{
		{Text: "✅ Check", Data: checkJoinData},
	})
	return m
}

func channelLinkMarkup(channel string) *transport.Markup {
	name, ok := strings.CutPrefix(channel, "@")
	if !ok {
		return nil
	}
	return &transport.Markup{
		Inline: [][]transport.InlineButton{
			{{Text: "📢 Open channel", URL: "https://t.me/" + name}},
		},
	}
}
