package usecase

import (
	"context"
	"errors"

	"go-clinic-booking/internal/converter"
	"go-clinic-booking/internal/delivery/dto"
	"go-clinic-booking/internal/domain/entity"
	"go-clinic-booking/internal/domain/repository"
	"go-clinic-booking/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var ErrPatientNotFound = errors.New("patient not found")

type PatientProfileUsecase interface {
	Get(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	Update(ctx context.Context, userID uuid.UUID, req *dto.UpdatePatientProfileRequest) (*dto.UserResponse, error)
}

type patientProfileUsecase struct {
	db                 *gorm.DB
	log                *logrus.Logger
	transactor         repository.Transactor
	userRepo           repository.UserRepository
	patientProfileRepo repository.PatientProfileRepository
	auditService       service.AuditService
}

func NewPatientProfileUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	transactor repository.Transactor,
	userRepo repository.UserRepository,
	patientProfileRepo repository.PatientProfileRepository,
	auditService service.AuditService,
) PatientProfileUsecase {
	return &patientProfileUsecase{
		db:                 db,
		log:                log,
		transactor:         transactor,
		userRepo:           userRepo,
		patientProfileRepo: patientProfileRepo,
		auditService:       auditService,
	}
}

func (u *patientProfileUsecase) Get(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find user: %+v", err)
		return nil, err
	}
	if user == nil || user.PatientProfile == nil {
		return nil, ErrPatientNotFound
	}

	return converter.UserToResponse(user), nil
}

func (u *patientProfileUsecase) Update(ctx context.Context, userID uuid.UUID, req *dto.UpdatePatientProfileRequest) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find user: %+v", err)
		return nil, err
	}
	if user == nil || user.PatientProfile == nil {
		return nil, ErrPatientNotFound
	}

	profile := user.PatientProfile

	oldValue := map[string]interface{}{
		"phone_number": profile.PhoneNumber,
		"address":      profile.Address,
	}

	if req.PhoneNumber != "" {
		profile.PhoneNumber = req.PhoneNumber
	}
	if req.Address != "" {
		profile.Address = req.Address
	}

	err = u.transactor.Transaction(ctx, func(tx *gorm.DB) error {
		if err := u.patientProfileRepo.Update(tx, profile); err != nil {
			u.log.Warnf("Failed to update patient profile: %+v", err)
			return err
		}

		return u.auditService.LogUpdate(ctx, tx, &userID, entity.AuditActionProfileUpdate,
			"patient_profile", userID.String(), oldValue, map[string]interface{}{
				"phone_number": profile.PhoneNumber,
				"address":      profile.Address,
			})
	})
	if err != nil {
		return nil, err
	}

	return converter.UserToResponse(user), nil
}
