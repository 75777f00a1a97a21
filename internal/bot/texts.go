package bot

const (
	textJoinPrompt = "❗ To use the bot, join the channel(s) below.\nThen press ✅ Check."
	textJoinRetry  = "❗ You are still not subscribed to all of them.\nJoin and press ✅ Check:"
	textJoinOK     = "✅ Subscription confirmed!"

	textWelcome      = "✅ Welcome!"
	textAdminWelcome = "✅ Admin menu"

	textHelp = "📌 Press 🎬 Get movie, then send a code.\n" +
		"📌 This bot serves movies by their short codes.\n" +
		"📌 Contact an admin for promotions."

	textAskCode      = "🎬 Send the movie code"
	textGetMovieHint = "🎬 To get a movie, press the 🎬 Get movie button first."

	textAddStep1       = "1/3) Send the movie code (e.g. 102 or 134)"
	textAddStep2       = "2/3) Send the movie title."
	textAddStep3       = "3/3) Now send the movie as a VIDEO."
	textAddBadCode     = "❌ Invalid code. Letters, digits, - and _ only (max 20). Send it again."
	textAddShortTitle  = "❌ Title is too short. Send it again."
	textAddNeedVideo   = "❌ Send a video (Telegram video)."
	textDeleteAskCode  = "❌ Send the code of the movie to delete."
	textDeleted        = "✅ Deleted"
	textDeleteNotFound = "❌ No movie with that code"
	textSearchAskCode  = "🔎 Enter the movie code:"

	textBroadcastAsk     = "📢 Send the message to broadcast (text/photo/video)."
	textBroadcastRunning = "⏳ Broadcasting..."

	textStorageError = "⚠️ Something went wrong. Please try again."

	textChannelPrompt   = "📢 Movies channel:"
	textChannelNotSet   = "📢 The movies channel is not configured."
	textNotFoundChannel = "📢 You may find it in the channel 👇"
)
