package game

import (
	"strings"
)

const (
	// totalWatchers is the size of the studio audience, votes are in percents.
	totalWatchers = 100

	DefaultFriendCallTemplate = "%{name} thinks the right answer is %{variant}"
)

var DefaultFriends = []string{
	"Alice", "Boris", "Charlotte", "Dmitry", "Elena", "Frank", "Grace", "Hector",
}

// Help holds the hints used on a game question. A nil or empty field means the kind
// is not used yet; each field is written once by GameQuestion.ApplyHelp.
type Help struct {
	AudienceHelp map[Letter]int `json:"audience_help,omitempty"`
	FiftyFifty   []Letter       `json:"fifty_fifty,omitempty"`
	FriendCall   string         `json:"friend_call,omitempty"`
}

func (h Help) Has(kind HelpKind) bool {
	switch kind {
	case HelpAudience:
		return h.AudienceHelp != nil
	case HelpFiftyFifty:
		return h.FiftyFifty != nil
	case HelpFriendCall:
		return h.FriendCall != ""
	}
	return false
}

// Helper generates hint payloads. The correct answer is favoured in every hint.
type Helper struct {
	rand     Rand
	friends  []string
	template string
}

// NewHelper creates a hint generator. The template may reference %{name} and %{variant}.
func NewHelper(r Rand, friends []string, template string) *Helper {
	if r == nil {
		r = DefaultRand()
	}
	if len(friends) == 0 {
		friends = DefaultFriends
	}
	if template == "" {
		template = DefaultFriendCallTemplate
	}

	return &Helper{
		rand:     r,
		friends:  friends,
		template: template,
	}
}

// AudienceDistribution returns the audience vote in percents for each of keys. The correct key
// weight is drawn from 45..90, the others from 1..60. Percents are truncated after scaling, so
// their sum may fall short of 100 by up to len(keys)-1.
func (h *Helper) AudienceDistribution(keys []Letter, correct Letter) map[Letter]int {
	weights := make([]int, len(keys))
	sum := 0
	for i, k := range keys {
		if k == correct {
			weights[i] = between(h.rand, 45, 90)
		} else {
			weights[i] = between(h.rand, 1, 60)
		}
		sum += weights[i]
	}

	dist := make(map[Letter]int, len(keys))
	for i, k := range keys {
		dist[k] = totalWatchers * weights[i] / sum
	}

	return dist
}

// FiftyFifty keeps the correct key and one random other key of keys.
func (h *Helper) FiftyFifty(keys []Letter, correct Letter) []Letter {
	others := make([]Letter, 0, len(keys))
	for _, k := range keys {
		if k != correct {
			others = append(others, k)
		}
	}

	if len(others) == 0 {
		return []Letter{correct}
	}

	return []Letter{correct, others[h.rand.IntN(len(others))]}
}

// FriendCall returns what a friend advises. The friend names the correct key 7 times out of 10
// and otherwise guesses among keys, which may land on the correct key as well.
func (h *Helper) FriendCall(keys []Letter, correct Letter) string {
	key := correct
	if h.rand.IntN(10) <= 2 {
		key = keys[h.rand.IntN(len(keys))]
	}

	name := h.friends[h.rand.IntN(len(h.friends))]

	return strings.NewReplacer(
		"%{name}", name,
		"%{variant}", key.Upper(),
	).Replace(h.template)
}
