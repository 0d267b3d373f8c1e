package broadcast

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

type FanoutSuite struct {
	suite.Suite
	fanout *Fanout
}

func TestFanoutSuite(t *testing.T) {
	suite.Run(t, new(FanoutSuite))
}

func (s *FanoutSuite) SetupTest() {
	s.fanout = New(4, testutil.NopLogger())
}

func drain(sub *Subscriber) []string {
	var out []string
	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func (s *FanoutSuite) TestAudienceRoomName() {
	name, ok := RoomAudience("ellios").RoomName()
	s.True(ok)
	s.Equal("ellios", name)

	_, ok = Global.RoomName()
	s.False(ok)
}

func (s *FanoutSuite) TestRegisterJoinsGlobal() {
	s.fanout.Register("conn-1")
	s.fanout.Register("conn-2")

	s.Equal([]model.ConnectionID{"conn-1", "conn-2"}, s.fanout.Members(Global))
	s.Equal([]Audience{Global}, s.fanout.Audiences("conn-1"))
	s.Equal(2, s.fanout.SubscriberCount())
}

func (s *FanoutSuite) TestPublishReachesOnlyAudience() {
	a := s.fanout.Register("conn-1")
	b := s.fanout.Register("conn-2")
	s.True(s.fanout.Subscribe(RoomAudience("ellios"), "conn-1"))

	s.Equal(1, s.fanout.Publish(RoomAudience("ellios"), []byte("room")))
	s.Equal(2, s.fanout.Publish(Global, []byte("all")))

	s.Equal([]string{"room", "all"}, drain(a))
	s.Equal([]string{"all"}, drain(b))
}

func (s *FanoutSuite) TestSubscribeUnknownConnection() {
	s.False(s.fanout.Subscribe(RoomAudience("ellios"), "ghost"))
	s.Empty(s.fanout.Members(RoomAudience("ellios")))
}

func (s *FanoutSuite) TestUnsubscribe() {
	a := s.fanout.Register("conn-1")
	s.fanout.Subscribe(RoomAudience("ellios"), "conn-1")
	s.fanout.Unsubscribe(RoomAudience("ellios"), "conn-1")

	s.Zero(s.fanout.Publish(RoomAudience("ellios"), []byte("room")))
	s.Empty(drain(a))
	s.Equal([]Audience{Global}, s.fanout.Audiences("conn-1"))
}

func (s *FanoutSuite) TestDropOldestOnOverflow() {
	a := s.fanout.Register("conn-1")
	for i := 0; i < 6; i++ {
		s.fanout.Publish(Global, []byte(fmt.Sprintf("m%d", i)))
	}

	s.Equal([]string{"m2", "m3", "m4", "m5"}, drain(a))
	s.Equal(2, a.Dropped())
}

func (s *FanoutSuite) TestDirectSendSharesQueueOrder() {
	a := s.fanout.Register("conn-1")
	s.fanout.Publish(Global, []byte("broadcast"))
	s.True(s.fanout.Send("conn-1", []byte("reply")))
	s.fanout.Publish(Global, []byte("broadcast-2"))

	s.Equal([]string{"broadcast", "reply", "broadcast-2"}, drain(a))
	s.False(s.fanout.Send("ghost", []byte("reply")))
}

func (s *FanoutSuite) TestRemoveClosesQueue() {
	a := s.fanout.Register("conn-1")
	s.fanout.Subscribe(RoomAudience("ellios"), "conn-1")
	s.fanout.Publish(Global, []byte("before"))

	s.fanout.Remove("conn-1")
	s.Equal([]string{"before"}, drain(a))

	_, ok := <-a.C()
	s.False(ok)
	s.Empty(s.fanout.Members(RoomAudience("ellios")))
	s.Empty(s.fanout.Members(Global))
	s.False(s.fanout.Send("conn-1", []byte("after")))

	// Idempotent
	s.NotPanics(func() { s.fanout.Remove("conn-1") })
}

func (s *FanoutSuite) TestReRegisterReplacesSubscriber() {
	old := s.fanout.Register("conn-1")
	s.fanout.Subscribe(RoomAudience("ellios"), "conn-1")

	fresh := s.fanout.Register("conn-1")
	s.NotSame(old, fresh)

	_, ok := <-old.C()
	s.False(ok)
	s.Equal([]Audience{Global}, s.fanout.Audiences("conn-1"))
}

func (s *FanoutSuite) TestPublishJSON() {
	a := s.fanout.Register("conn-1")
	n, err := s.fanout.PublishJSON(Global, map[string]string{"type": "room_info"})
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal([]string{`{"type":"room_info"}`}, drain(a))

	_, err = s.fanout.PublishJSON(Global, func() {})
	s.Error(err)
}

func (s *FanoutSuite) TestCloseRemovesEverything() {
	a := s.fanout.Register("conn-1")
	s.fanout.Register("conn-2")
	s.fanout.Close()

	_, ok := <-a.C()
	s.False(ok)
	s.Zero(s.fanout.SubscriberCount())
}

func (s *FanoutSuite) TestConcurrentPublishAndMembershipChanges() {
	fanout := New(1024, testutil.NopLogger())
	subs := make([]*Subscriber, 8)
	for i := range subs {
		subs[i] = fanout.Register(model.ConnectionID(fmt.Sprintf("conn-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				fanout.Publish(Global, []byte("x"))
				fanout.Publish(RoomAudience("ellios"), []byte("y"))
			}
		}()
		go func(i int) {
			defer wg.Done()
			id := model.ConnectionID(fmt.Sprintf("conn-%d", i))
			for j := 0; j < 100; j++ {
				fanout.Subscribe(RoomAudience("ellios"), id)
				fanout.Unsubscribe(RoomAudience("ellios"), id)
			}
		}(i)
	}
	wg.Wait()

	for _, sub := range subs[4:] {
		s.Len(drain(sub), 400)
	}
}
