package stream

import (
	C "drape.com/drape/cloth"
	G "drape.com/drape/geometry"
)

type Conn interface {
	Send([]byte) error
	Close() error
}

//Join registers a connection. The sim sends the welcome before replying
type Join struct {
	Conn  Conn
	Reply chan<- int
}

//Leave is issued on disconnect
type Leave struct {
	ClientID int
}

//Cut removes the constraints touching Indices, or the face Ray hits when set
type Cut struct {
	Indices []int
	Ray     *G.Ray
	Reply   chan<- []C.Segment //Optional
}

type Reset struct{}

//Retune swaps the cloth force parameters, see cloth.Retune
type Retune struct {
	Config C.Config
}

//Stats asks for a summary of the running sim
type Stats struct {
	Reply chan<- StatsResult
}

type StatsResult struct {
	Frame       uint64
	Constraints int
	Clients     int
}
