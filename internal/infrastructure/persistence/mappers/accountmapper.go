package mappers

import (
	"time"

	"atendo/internal/domain/account"
	"atendo/internal/infrastructure/persistence/models"
)

// AccountMapper handles the conversion between Account domain entities and persistence models.
type AccountMapper interface {
	// ToModel converts an account domain entity to a persistence model.
	ToModel(a *account.Account) *models.AccountModel

	// ToDomain converts an account persistence model to a domain entity.
	ToDomain(model *models.AccountModel) (*account.Account, error)
}

// AccountMapperImpl is the concrete implementation of AccountMapper.
type AccountMapperImpl struct{}

// NewAccountMapper creates a new AccountMapper.
func NewAccountMapper() AccountMapper {
	return &AccountMapperImpl{}
}

// ToModel converts an account domain entity to a persistence model.
func (m *AccountMapperImpl) ToModel(a *account.Account) *models.AccountModel {
	model := &models.AccountModel{
		ID:                        a.ID(),
		TenantID:                  a.TenantID(),
		Name:                      a.Name(),
		Status:                    a.Status().String(),
		Number:                    a.Number(),
		QRCode:                    a.QRCode(),
		ImportGroupMessages:       a.ImportGroupMessages(),
		StatusImportMessages:      a.StatusImportMessages(),
		ClosedTicketsPostImported: a.ClosedTicketsPostImported(),
		AllowGroup:                a.AllowGroup(),
		CreatedAt:                 a.CreatedAt().UnixMilli(),
		UpdatedAt:                 a.UpdatedAt().UnixMilli(),
	}

	if a.ImportOldMessages() != nil {
		v := a.ImportOldMessages().UnixMilli()
		model.ImportOldMessages = &v
	}
	if a.ImportRecentMessages() != nil {
		v := a.ImportRecentMessages().UnixMilli()
		model.ImportRecentMessages = &v
	}

	return model
}

// ToDomain converts an account persistence model to a domain entity.
func (m *AccountMapperImpl) ToDomain(model *models.AccountModel) (*account.Account, error) {
	status, err := account.NewStatus(model.Status)
	if err != nil {
		return nil, err
	}

	var importOld, importRecent *time.Time
	if model.ImportOldMessages != nil {
		t := convertMillisToTime(*model.ImportOldMessages)
		importOld = &t
	}
	if model.ImportRecentMessages != nil {
		t := convertMillisToTime(*model.ImportRecentMessages)
		importRecent = &t
	}

	return account.ReconstructAccount(
		model.ID,
		model.TenantID,
		model.Name,
		status,
		model.Number,
		model.QRCode,
		importOld,
		importRecent,
		model.ImportGroupMessages,
		model.StatusImportMessages,
		model.ClosedTicketsPostImported,
		model.AllowGroup,
		convertMillisToTime(model.CreatedAt),
		convertMillisToTime(model.UpdatedAt),
	)
}

func convertMillisToTime(millis int64) time.Time {
	return time.Unix(0, millis*int64(time.Millisecond))
}
