package runtime

import (
	"chat-sync/contract"
	"chat-sync/domain"
	"sync"
)

type Set map[string]struct{}

var _ contract.IRegistry = (*Registry)(nil)

type Registry struct {
	mu            sync.RWMutex
	sinks         map[string]contract.EventSink    // map subscription -> Sink
	conversations map[string]domain.ConversationID // map subscription -> conversation
	members       map[domain.ConversationID]Set    // map conversation to subscriptions
}

func NewRegistry() *Registry {
	return &Registry{
		sinks:         make(map[string]contract.EventSink),
		conversations: make(map[string]domain.ConversationID),
		members:       make(map[domain.ConversationID]Set),
	}
}

// GetSinksForConversation retrieves all live sinks listening to a conversation.
// Returns nil if nobody is subscribed.
func (r *Registry) GetSinksForConversation(conversationID domain.ConversationID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.members[conversationID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for subscriptionID := range members {
		if sink, exists := r.sinks[subscriptionID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a sink for one conversation under a unique subscription id.
// Subscribing again with the same id moves it to the new conversation.
func (r *Registry) Subscribe(subscriptionID string, conversationID domain.ConversationID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.remove(subscriptionID)
	r.sinks[subscriptionID] = sink
	r.conversations[subscriptionID] = conversationID
	if _, ok := r.members[conversationID]; !ok {
		r.members[conversationID] = make(Set)
	}
	r.members[conversationID][subscriptionID] = struct{}{}
}

// Unsubscribe removes a subscription. It ensures no empty sets are left in
// the conversation map to prevent memory leaks over time.
func (r *Registry) Unsubscribe(subscriptionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(subscriptionID)
}

func (r *Registry) remove(subscriptionID string) {
	conversationID, ok := r.conversations[subscriptionID]
	if !ok {
		return
	}
	delete(r.sinks, subscriptionID)
	delete(r.conversations, subscriptionID)
	if members, ok := r.members[conversationID]; ok {
		delete(members, subscriptionID)
		if len(members) == 0 {
			delete(r.members, conversationID)
		}
	}
}
