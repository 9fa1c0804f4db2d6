package internalgrpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"strconv"

	"github.com/golang/protobuf/ptypes/empty"
	"github.com/lomoval/calendar-helper/internal/app"
	"github.com/lomoval/calendar-helper/internal/pipeline"
	"github.com/lomoval/calendar-helper/internal/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	errInternalServerError = "internal server error"
	errIncorrectRequest    = "incorrect request"
	errNoEvents            = "no events were found"
	errTooManyImages       = "too many images"
	errImageTooLarge       = "image is too large"
	errIncorrectImage      = "image data is not base64"

	defaultMaxImageSize = 4 * 1024 * 1024
	defaultMaxImages    = 5
)

type Config struct {
	Host string
	Port int
}

// Info is what Config reports to clients; zero limits get the defaults.
type Info struct {
	Version      string
	MaxImageSize int64
	MaxImages    int
}

type Server struct {
	grpcServer *grpc.Server
	app        *app.App
	info       Info
	addr       string
}

type image struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

type extractRequest struct {
	SessionID string  `json:"session_id"`
	Text      string  `json:"text"`
	Timezone  string  `json:"timezone"`
	ClientIP  string  `json:"client_ip"`
	Images    []image `json:"images"`
}

type correctRequest struct {
	SessionID string          `json:"session_id"`
	Text      string          `json:"correction"`
	Timezone  string          `json:"timezone"`
	Events    []storage.Event `json:"current_events"`
}

type eventsResponse struct {
	SessionID string          `json:"session_id"`
	Events    []storage.Event `json:"events"`
}

func NewServer(config Config, application *app.App, info Info) *Server {
	if info.MaxImageSize <= 0 {
		info.MaxImageSize = defaultMaxImageSize
	}
	if info.MaxImages <= 0 {
		info.MaxImages = defaultMaxImages
	}
	return &Server{app: application, info: info, addr: net.JoinHostPort(config.Host, strconv.Itoa(config.Port))}
}

// Register creates the grpc server with the service registered on it.
func (s *Server) Register() *grpc.Server {
	s.grpcServer = grpc.NewServer(
		grpc.UnaryInterceptor(loggingHandler),
		grpc.MaxRecvMsgSize(int(s.info.MaxImageSize)*s.info.MaxImages*4/3+1024*1024),
	)
	RegisterEventsServer(s.grpcServer, s)
	return s.grpcServer
}

func (s *Server) Start(_ context.Context) error {
	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("failed to listen grpc endpoint: %v", err)
		return err
	}
	return s.Serve(lsn)
}

func (s *Server) Serve(lsn net.Listener) error {
	if s.grpcServer == nil {
		s.Register()
	}
	log.Printf("starting grpc server on %s", lsn.Addr())
	return s.grpcServer.Serve(lsn)
}

func (s *Server) Stop(_ context.Context) error {
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	return nil
}

func (s *Server) Extract(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req extractRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, errIncorrectRequest)
	}
	images, err := s.images(req.Images)
	if err != nil {
		return nil, err
	}

	res, err := s.app.Extract(ctx, app.ExtractCommand{
		SessionID: req.SessionID,
		ClientIP:  req.ClientIP,
		Images:    images,
		Text:      req.Text,
		Timezone:  req.Timezone,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(eventsResponse{SessionID: res.SessionID, Events: res.Events})
}

func (s *Server) Correct(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req correctRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, errIncorrectRequest)
	}

	res, err := s.app.Correct(ctx, app.CorrectCommand{
		SessionID: req.SessionID,
		Text:      req.Text,
		Events:    req.Events,
		Timezone:  req.Timezone,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(eventsResponse{SessionID: res.SessionID, Events: res.Events})
}

func (s *Server) Config(_ context.Context, _ *empty.Empty) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{
		"version":      s.info.Version,
		"maxImageSize": s.info.MaxImageSize,
		"maxImages":    s.info.MaxImages,
	})
}

func (s *Server) images(in []image) ([]pipeline.Image, error) {
	if len(in) > s.info.MaxImages {
		return nil, status.Errorf(codes.InvalidArgument, errTooManyImages)
	}
	images := make([]pipeline.Image, 0, len(in))
	for _, img := range in {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, errIncorrectImage)
		}
		if int64(len(data)) > s.info.MaxImageSize {
			return nil, status.Errorf(codes.InvalidArgument, errImageTooLarge)
		}
		images = append(images, pipeline.Image{Data: data, MIMEType: img.MIMEType})
	}
	return images, nil
}

func toStatus(err error) error {
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		switch {
		case perr.Kind == pipeline.KindSafetyRejected:
			return status.Errorf(codes.InvalidArgument, "%s", perr.Reason)
		case perr.Kind == pipeline.KindNoEventsFound:
			return status.Errorf(codes.NotFound, errNoEvents)
		case errors.Is(err, context.DeadlineExceeded):
			return status.Errorf(codes.DeadlineExceeded, "%v", err)
		}
	}
	log.Errorf("request failed: %v", err)
	return status.Errorf(codes.Internal, errInternalServerError)
}

func fromStruct(in *structpb.Struct, v interface{}) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, errInternalServerError)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, errInternalServerError)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to build response: %v", err)
	}
	return out, nil
}
