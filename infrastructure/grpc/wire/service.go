package wire

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "chatsync.v1.ConversationStore"

const (
	ListConversationsMethod  = "/" + ServiceName + "/ListConversations"
	FindConversationMethod   = "/" + ServiceName + "/FindConversation"
	CreateConversationMethod = "/" + ServiceName + "/CreateConversation"
	FetchMessagesMethod      = "/" + ServiceName + "/FetchMessages"
	InsertMessageMethod      = "/" + ServiceName + "/InsertMessage"
	SubscribeMethod          = "/" + ServiceName + "/Subscribe"
)

// ConversationStoreServer is the server API of the store service.
type ConversationStoreServer interface {
	ListConversations(context.Context, *ListConversationsRequest) (*ConversationList, error)
	FindConversation(context.Context, *PairRequest) (*ConversationReply, error)
	CreateConversation(context.Context, *PairRequest) (*ConversationReply, error)
	FetchMessages(context.Context, *FetchMessagesRequest) (*MessageList, error)
	InsertMessage(context.Context, *InsertMessageRequest) (*MessageReply, error)
	Subscribe(*SubscribeRequest, SubscribeStream) error
}

// SubscribeStream is the server side of the Subscribe stream.
type SubscribeStream interface {
	Send(*SubscribeFrame) error
	Context() context.Context
}

type subscribeStream struct {
	grpc.ServerStream
}

func (s *subscribeStream) Send(frame *SubscribeFrame) error {
	return s.ServerStream.SendMsg(frame)
}

func RegisterConversationStoreServer(registrar grpc.ServiceRegistrar, srv ConversationStoreServer) {
	registrar.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConversationStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListConversations", Handler: listConversationsHandler},
		{MethodName: "FindConversation", Handler: findConversationHandler},
		{MethodName: "CreateConversation", Handler: createConversationHandler},
		{MethodName: "FetchMessages", Handler: fetchMessagesHandler},
		{MethodName: "InsertMessage", Handler: insertMessageHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "proto/chatsync/v1/store.proto",
}

// SubscribeStreamDesc is the client-side descriptor of Subscribe.
var SubscribeStreamDesc = &ServiceDesc.Streams[0]

func listConversationsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListConversationsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConversationStoreServer).ListConversations(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ListConversationsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConversationStoreServer).ListConversations(ctx, req.(*ListConversationsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func findConversationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PairRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConversationStoreServer).FindConversation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FindConversationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConversationStoreServer).FindConversation(ctx, req.(*PairRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createConversationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PairRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConversationStoreServer).CreateConversation(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateConversationMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConversationStoreServer).CreateConversation(ctx, req.(*PairRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func fetchMessagesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(FetchMessagesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConversationStoreServer).FetchMessages(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FetchMessagesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConversationStoreServer).FetchMessages(ctx, req.(*FetchMessagesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func insertMessageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(InsertMessageRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConversationStoreServer).InsertMessage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: InsertMessageMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ConversationStoreServer).InsertMessage(ctx, req.(*InsertMessageRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ConversationStoreServer).Subscribe(in, &subscribeStream{stream})
}
