package stream

import (
	"encoding/json"

	V "drape.com/drape/vector"
)

const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgCut     = "cut"
	MsgReset   = "reset"
	MsgError   = "error"
)

type Envelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"` //Raw payload bytes
}

//Welcome is sent once on join. It carries everything a client needs to build
//its own copy of the lattice, constraints as they stand after earlier cuts
type Welcome struct {
	ClientID    int      `json:"clientId"`
	TickHz      int      `json:"tickHz"`
	SegmentsX   int      `json:"segmentsX"`
	SegmentsY   int      `json:"segmentsY"`
	Width       float32  `json:"width"`
	Height      float32  `json:"height"`
	Pinned      []int    `json:"pinned"`
	Constraints [][2]int `json:"constraints"`
	Faces       [][3]int `json:"faces"`
}

//State is one broadcast frame. Positions are flat xyz triples
type State struct {
	Frame     uint64        `json:"frame"`
	Positions []float32     `json:"positions"`
	Cuts      []CutSnapshot `json:"cuts,omitempty"` //Constraints removed since the last frame
	Reset     bool          `json:"reset,omitempty"`
}

type CutSnapshot struct {
	A    int     `json:"a"`
	B    int     `json:"b"`
	From V.Vec32 `json:"from"`
	To   V.Vec32 `json:"to"`
}

//CutRequest names particles directly or a ray to pick a face with
type CutRequest struct {
	Indices []int    `json:"indices,omitempty"`
	Origin  *V.Vec32 `json:"origin,omitempty"`
	Dir     *V.Vec32 `json:"dir,omitempty"`
}

type Error struct {
	Msg string `json:"msg"`
}
