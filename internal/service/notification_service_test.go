package service

import (
	"fyp_backend/internal/model"
	"fyp_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationStore struct {
	created []model.Notification
}

func (f *fakeNotificationStore) CreateBatch(notifications []model.Notification) error {
	f.created = append(f.created, notifications...)
	return nil
}

func (f *fakeNotificationStore) ListByReceiver(receiverID uint, page, pageSize int) ([]model.Notification, int64, error) {
	var out []model.Notification
	for _, n := range f.created {
		if n.ReceiverID == receiverID {
			out = append(out, n)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationStore) CountUnread(receiverID uint) (int64, error) {
	var count int64
	for _, n := range f.created {
		if n.ReceiverID == receiverID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) MarkRead(id string, receiverID uint) error {
	for i := range f.created {
		if f.created[i].ID == id && f.created[i].ReceiverID == receiverID {
			f.created[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) MarkAllRead(receiverID uint) error {
	for i := range f.created {
		if f.created[i].ReceiverID == receiverID {
			f.created[i].Read = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) DeleteByProjectID(projectID uint) error {
	kept := f.created[:0]
	for _, n := range f.created {
		if n.ProjectID != projectID {
			kept = append(kept, n)
		}
	}
	f.created = kept
	return nil
}

type fakeDirectory struct {
	existing map[uint]bool
}

func (f *fakeDirectory) CountExisting(ids []uint) (int64, error) {
	var count int64
	for _, id := range ids {
		if f.existing[id] {
			count++
		}
	}
	return count, nil
}

type fakePusher struct {
	online map[uint]bool
	pushed map[uint][]WSMessage
}

func (f *fakePusher) Push(userIDs []uint, msg WSMessage) {
	if f.pushed == nil {
		f.pushed = make(map[uint][]WSMessage)
	}
	for _, id := range userIDs {
		f.pushed[id] = append(f.pushed[id], msg)
	}
}

func (f *fakePusher) IsUserOnline(userID uint) bool {
	return f.online[userID]
}

func newRelayFixture() (*NotificationService, *fakeNotificationStore, *fakePusher) {
	store := &fakeNotificationStore{}
	pusher := &fakePusher{online: map[uint]bool{}}
	dir := &fakeDirectory{existing: map[uint]bool{
		supervisorID: true, secondReaderID: true, studentAID: true, studentBID: true,
	}}
	svc := NewNotificationService(store, dir, &fakeProjectResolver{project: testProject()}, pusher)
	return svc, store, pusher
}

func TestSendEmptyReceiversRejected(t *testing.T) {
	svc, store, _ := newRelayFixture()

	err := svc.Send(RelayEvent{
		ActorID: supervisorID,
		Type:    model.NotifOutlinePublished,
		Message: "published",
	})
	assert.ErrorIs(t, err, util.ErrNoReceivers)
	assert.Empty(t, store.created)
}

func TestSendUnknownReceiverFailsWholeBatch(t *testing.T) {
	svc, store, _ := newRelayFixture()

	err := svc.Send(RelayEvent{
		ActorID:     supervisorID,
		ReceiverIDs: []uint{studentAID, 777},
		ProjectID:   1,
		Type:        model.NotifOutlinePublished,
		Message:     "published",
	})
	assert.ErrorIs(t, err, util.ErrInvalidReceiver)
	// 批内任一接收人非法则整批失败，不做部分投递
	assert.Empty(t, store.created)
}

func TestSendUnknownProjectRejected(t *testing.T) {
	svc, store, _ := newRelayFixture()

	err := svc.Send(RelayEvent{
		ActorID:     supervisorID,
		ReceiverIDs: []uint{studentAID},
		ProjectID:   42,
		Type:        model.NotifOutlinePublished,
		Message:     "published",
	})
	assert.ErrorIs(t, err, util.ErrProjectNotFound)
	assert.Empty(t, store.created)
}

func TestSendPersistsRowPerReceiverAndPushesOnline(t *testing.T) {
	svc, store, pusher := newRelayFixture()
	pusher.online[studentAID] = true

	err := svc.Send(RelayEvent{
		ActorID:     supervisorID,
		ReceiverIDs: []uint{studentAID, studentBID},
		ProjectID:   1,
		Type:        model.NotifFinalReportPublished,
		Message:     "final grade released",
	})
	require.NoError(t, err)

	// 每个接收人一条持久化记录，不论在线与否
	require.Len(t, store.created, 2)
	for _, n := range store.created {
		assert.Equal(t, supervisorID, n.ActorID)
		assert.Equal(t, model.NotifFinalReportPublished, n.Type)
		assert.False(t, n.Read)
	}

	// 在线接收人收到实时推送，离线接收人只落库
	require.Len(t, pusher.pushed[studentAID], 1)
	assert.Equal(t, string(model.NotifFinalReportPublished), pusher.pushed[studentAID][0].Type)
	assert.Empty(t, pusher.pushed[studentBID])
}

func TestBroadcastUsesSystemType(t *testing.T) {
	svc, store, _ := newRelayFixture()

	err := svc.Broadcast(supervisorID, []uint{studentAID, studentBID}, "server maintenance tonight")
	require.NoError(t, err)

	require.Len(t, store.created, 2)
	assert.Equal(t, model.NotifSystemBroadcast, store.created[0].Type)
	assert.Equal(t, uint(0), store.created[0].ProjectID)
}

func TestMarkReadScopedToReceiver(t *testing.T) {
	svc, store, _ := newRelayFixture()

	require.NoError(t, svc.Send(RelayEvent{
		ActorID:     supervisorID,
		ReceiverIDs: []uint{studentAID, studentBID},
		ProjectID:   1,
		Type:        model.NotifOutlinePublished,
		Message:     "published",
	}))
	store.created[0].ID = "n-1"
	store.created[1].ID = "n-2"

	require.NoError(t, svc.MarkRead("n-1", store.created[0].ReceiverID))

	count, err := svc.UnreadCount(store.created[0].ReceiverID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	count, err = svc.UnreadCount(store.created[1].ReceiverID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
