package broker

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"
)

type trackedOffset struct {
	msg   kafka.Message
	acked bool
}

// offsetTracker sits between delivered messages and the reader. Acks are
// recorded per offset, and the reader only sees a commit for the highest
// offset of each partition below which everything is acked.
type offsetTracker struct {
	committer Committer

	mu         sync.Mutex
	partitions map[int][]*trackedOffset
}

func newOffsetTracker(committer Committer) *offsetTracker {
	return &offsetTracker{committer: committer, partitions: make(map[int][]*trackedOffset)}
}

// track registers a fetched message as outstanding.
func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.partitions[msg.Partition] = append(t.partitions[msg.Partition], &trackedOffset{msg: msg})
}

// CommitMessages marks msgs acked and commits every partition's acked prefix.
// On a failed commit the marks are rolled back so the messages stay pending.
func (t *offsetTracker) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var marked []*trackedOffset
	for _, msg := range msgs {
		for _, o := range t.partitions[msg.Partition] {
			if o.msg.Offset == msg.Offset && !o.acked {
				o.acked = true
				marked = append(marked, o)
				break
			}
		}
	}

	var commits []kafka.Message
	cuts := make(map[int]int)
	for partition, offsets := range t.partitions {
		n := 0
		for n < len(offsets) && offsets[n].acked {
			n++
		}
		if n > 0 {
			commits = append(commits, offsets[n-1].msg)
			cuts[partition] = n
		}
	}
	if len(commits) == 0 {
		return nil
	}

	if err := t.committer.CommitMessages(ctx, commits...); err != nil {
		for _, o := range marked {
			o.acked = false
		}
		return err
	}
	for partition, n := range cuts {
		t.partitions[partition] = t.partitions[partition][n:]
	}
	return nil
}
