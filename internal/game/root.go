package game

import (
	"log"

	"distworld.dev/internal/do"
)

// Root is the container for top-level objects: the login manager lives in
// its login zone, the world in its world zone. It carries no behavior of its
// own.
type Root struct {
	do.Core
	log *log.Logger
}

func (r *Root) OnInit() {
	if r.log != nil {
		r.log.Printf("Root(%s) init %d in (%d, %d)", r.Role(), r.DoID(), r.ParentID(), r.ZoneID())
	}
}

// World is the client-side projection of the world container. Avatars enter
// through interest in its zone; the container itself has nothing to say to a
// client.
type World struct {
	do.Core
}
