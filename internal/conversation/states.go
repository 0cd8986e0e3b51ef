package conversation

import (
	"fmt"
	"strconv"
	"strings"
)

// Conversation states stored in the session.
const (
	StateMainMenu         = "main_menu"
	StateAwaitingText     = "awaiting_text"
	StateMedia            = "media"
	StateButtons          = "buttons"
	StateScheduleDecision = "schedule_decision"
	StateCalendar         = "calendar"
	StateAwaitingTime     = "awaiting_time"
	StateChannelSelect    = "channel_select"
	StateScheduledEdit    = "scheduled_edit"

	StatePublishedEdit          = "published_edit"
	StatePublishedAwaitText     = "published_await_text"
	StatePublishedAwaitButtons  = "published_await_buttons"
	StatePublishedDeleteConfirm = "published_delete_confirm"
)

// Callback payloads. Parameterized ones are built by the helpers below.
const (
	cbCancel = "cancel"

	cbCreate    = "m:create"
	cbScheduled = "m:scheduled"
	cbPublished = "m:published"

	cbMediaDone   = "md:done"
	cbButtonsDone = "bt:done"

	cbSendNow  = "sd:now"
	cbSchedule = "sd:sched"
	cbEditText = "sd:text"
	cbEditMed  = "sd:media"
	cbEditBtn  = "sd:buttons"
	cbLayout   = "sd:layout"
	cbPreview  = "sd:preview"
	cbSave     = "sd:save"
	cbBack     = "sd:back"

	cbPubText       = "pt"
	cbPubButtons    = "pb"
	cbPubClear      = "pbx"
	cbPubBack       = "pk"
	cbDeleteDecline = "dx"
)

const (
	prefixMediaDel   = "md:del:"
	prefixButtonDel  = "bt:del:"
	prefixChannel    = "ch:"
	prefixSchedEdit  = "se:"
	prefixSchedNow   = "sp:"
	prefixSchedDel   = "sx:"
	prefixPubEdit    = "pe:"
	prefixPubDelete  = "pd:"
	prefixPubConfirm = "dc:"
)

func indexData(prefix string, i int) string { return prefix + strconv.Itoa(i) }

func idData(prefix string, id int64) string { return prefix + strconv.FormatInt(id, 10) }

// publishedData encodes a published post reference as
// <prefix><channel key>:<message id>.
func publishedData(prefix, channelKey, messageID string) string {
	return prefix + channelKey + ":" + messageID
}

func parseIndex(data, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	return i, err == nil && i >= 0
}

func parseID(data, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	return id, err == nil
}

func parsePublished(data, prefix string) (channelKey, messageID string, err error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return "", "", fmt.Errorf("missing prefix %q", prefix)
	}
	channelKey, messageID, ok = strings.Cut(rest, ":")
	if !ok || channelKey == "" || messageID == "" {
		return "", "", fmt.Errorf("malformed post reference %q", data)
	}
	return channelKey, messageID, nil
}

func cutPrefix(data, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(data, prefix)
	return rest, ok && rest != ""
}
