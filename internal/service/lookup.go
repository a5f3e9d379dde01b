package service

import (
	"context"

	apperrors "github.com/scripty/hub-server-go/internal/errors"
	"github.com/scripty/hub-server-go/internal/model"
	"github.com/scripty/hub-server-go/internal/repository"
)

// LookupService answers FETCH_USER, FETCH_GUILD and FETCH_CHANNEL from
// Postgres. A missing row is (nil, nil).
type LookupService struct {
	userRepo    repository.UserRepository
	guildRepo   repository.GuildRepository
	channelRepo repository.ChannelRepository
}

func NewLookupService(
	userRepo repository.UserRepository,
	guildRepo repository.GuildRepository,
	channelRepo repository.ChannelRepository,
) *LookupService {
	return &LookupService{
		userRepo:    userRepo,
		guildRepo:   guildRepo,
		channelRepo: channelRepo,
	}
}

func (s *LookupService) FetchUser(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.userRepo.FindBySnowflake(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return user, nil
}

func (s *LookupService) FetchGuild(ctx context.Context, guildID int64) (*model.Guild, error) {
	guild, err := s.guildRepo.FindBySnowflake(ctx, guildID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return guild, nil
}

func (s *LookupService) FetchChannel(ctx context.Context, channelID int64, voice bool) (*model.Channel, error) {
	channel, err := s.channelRepo.FindBySnowflake(ctx, channelID, voice)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return channel, nil
}
