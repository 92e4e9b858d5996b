package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContentType distinguishes the two kinds of analysed content.
type ContentType string

const (
	ContentProfile ContentType = "profile"
	ContentPost    ContentType = "post"
)

// ContentKey names one ContentItem: "profile" or "post_<n>" (1-indexed).
// Every per-item artifact is namespaced by it.
type ContentKey string

const ProfileKey ContentKey = "profile"

func PostKey(n int) ContentKey { return ContentKey(fmt.Sprintf("post_%d", n)) }

func (k ContentKey) Type() ContentType {
	if k == ProfileKey {
		return ContentProfile
	}
	return ContentPost
}

// PostIndex returns n for "post_<n>" and 0 otherwise.
func (k ContentKey) PostIndex() int {
	s, ok := strings.CutPrefix(string(k), "post_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// Less orders keys the way Discover does: the profile, then posts by
// number. Keys outside the convention sort last, by name.
func (k ContentKey) Less(o ContentKey) bool {
	rank := func(c ContentKey) int {
		switch {
		case c == ProfileKey:
			return 0
		case c.PostIndex() > 0:
			return c.PostIndex()
		default:
			return math.MaxInt
		}
	}
	if rk, ro := rank(k), rank(o); rk != ro {
		return rk < ro
	}
	return k < o
}

// Valid reports whether k follows the profile/post_<n> convention.
func (k ContentKey) Valid() bool {
	return k == ProfileKey || k.PostIndex() > 0
}

// ContentItem is one unit of analysis flowing through the pipeline.
type ContentItem struct {
	Key       ContentKey `json:"key"`
	RawPath   string     `json:"raw_path"`
	State     State      `json:"state"`
	FailedErr string     `json:"error,omitempty"`
}

// IsolatedImage is the cropped canvas every later stage works on.
type IsolatedImage struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Crop   Box    `json:"crop"`
}
