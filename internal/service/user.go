package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/user-weather-service/internal/apperror"
	"github.com/kjstillabower/user-weather-service/internal/mapper"
	"github.com/kjstillabower/user-weather-service/internal/models"
	"github.com/kjstillabower/user-weather-service/internal/observability"
	"github.com/kjstillabower/user-weather-service/internal/store"
	"github.com/kjstillabower/user-weather-service/internal/validation"
)

// UserService implements user CRUD. Every mutation performs its existence and
// email-uniqueness checks and its write inside one store transaction.
type UserService struct {
	store  store.UserStore
	logger *zap.Logger
}

// NewUserService creates a UserService. logger may be nil.
func NewUserService(s store.UserStore, logger *zap.Logger) *UserService {
	return &UserService{store: s, logger: logger}
}

func userNotFound(id int64) error {
	return apperror.Newf(apperror.NotFound, "User not found with ID: %d", id)
}

func userAlreadyExists(email string) error {
	return apperror.Newf(apperror.AlreadyExists, "User with email %s already exists", email)
}

// record counts the operation with its outcome label.
func record(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = apperror.KindOf(err).String()
	}
	observability.RecordUserOperation(op, outcome)
}

// CreateUser validates draft and inserts it. Fails with AlreadyExists when the
// email is taken.
func (s *UserService) CreateUser(ctx context.Context, draft models.UserDTO) (out models.UserDTO, err error) {
	defer func() { record("create", err) }()
	logger := observability.LoggerFromContext(ctx, s.logger)
	logger.Info("creating user", zap.String("email", draft.Email))

	if err := validation.ValidateUser(draft); err != nil {
		return models.UserDTO{}, err
	}

	u := mapper.ToEntity(&draft)
	u.ID = 0
	err = s.store.InTx(ctx, func(tx store.UserTx) error {
		_, taken, err := tx.FindByEmail(ctx, u.Email)
		if err != nil {
			return err
		}
		if taken {
			return userAlreadyExists(u.Email)
		}
		return tx.Insert(ctx, u)
	})
	if err != nil {
		logger.Warn("user creation failed", zap.String("email", draft.Email), zap.Error(err))
		return models.UserDTO{}, err
	}
	logger.Info("user created", zap.Int64("user_id", u.ID))
	return *mapper.ToDTO(u), nil
}

// GetAllUsers returns every user ordered by id. An empty store yields an empty slice.
func (s *UserService) GetAllUsers(ctx context.Context) (out []models.UserDTO, err error) {
	defer func() { record("list", err) }()
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]models.UserDTO, 0, len(users))
	for i := range users {
		out = append(out, *mapper.ToDTO(&users[i]))
	}
	observability.LoggerFromContext(ctx, s.logger).Info("retrieved users", zap.Int("count", len(out)))
	return out, nil
}

// GetUserByID returns the user with id or fails with NotFound.
func (s *UserService) GetUserByID(ctx context.Context, id int64) (out models.UserDTO, err error) {
	defer func() { record("get", err) }()
	u, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return models.UserDTO{}, err
	}
	if !ok {
		observability.LoggerFromContext(ctx, s.logger).Warn("user not found", zap.Int64("user_id", id))
		return models.UserDTO{}, userNotFound(id)
	}
	return *mapper.ToDTO(&u), nil
}

// UpdateUser replaces name, email and age of user id. Fails with NotFound when
// id is absent and AlreadyExists when the new email belongs to another user.
// Keeping the current email is always allowed.
func (s *UserService) UpdateUser(ctx context.Context, id int64, draft models.UserDTO) (out models.UserDTO, err error) {
	defer func() { record("update", err) }()
	logger := observability.LoggerFromContext(ctx, s.logger)
	logger.Info("updating user", zap.Int64("user_id", id))

	if err := validation.ValidateUser(draft); err != nil {
		return models.UserDTO{}, err
	}

	var updated models.User
	err = s.store.InTx(ctx, func(tx store.UserTx) error {
		existing, ok, err := tx.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return userNotFound(id)
		}
		if existing.Email != draft.Email {
			owner, taken, err := tx.FindByEmail(ctx, draft.Email)
			if err != nil {
				return err
			}
			if taken && owner.ID != id {
				return userAlreadyExists(draft.Email)
			}
		}
		mapper.ApplyUpdate(&existing, &draft)
		if err := tx.Update(ctx, existing); err != nil {
			return err
		}
		updated = existing
		return nil
	})
	if err != nil {
		logger.Warn("user update failed", zap.Int64("user_id", id), zap.Error(err))
		return models.UserDTO{}, err
	}
	logger.Info("user updated", zap.Int64("user_id", id))
	return *mapper.ToDTO(&updated), nil
}

// DeleteUser removes user id or fails with NotFound.
func (s *UserService) DeleteUser(ctx context.Context, id int64) (err error) {
	defer func() { record("delete", err) }()
	logger := observability.LoggerFromContext(ctx, s.logger)

	err = s.store.InTx(ctx, func(tx store.UserTx) error {
		removed, err := tx.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return userNotFound(id)
		}
		return nil
	})
	if err != nil {
		logger.Warn("user deletion failed", zap.Int64("user_id", id), zap.Error(err))
		return err
	}
	logger.Info("user deleted", zap.Int64("user_id", id))
	return nil
}
