package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
	"github.com/markettask/markettask-api/internal/repository"
)

type OfferServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	gateway *FakePaymentGateway
	service *OfferService
}

func (suite *OfferServiceTestSuite) SetupTest() {
	var err error
	suite.db, err = openTestDB()
	suite.Require().NoError(err)

	taskRepo := repository.NewTaskRepository(suite.db)
	offerRepo := repository.NewOfferRepository(suite.db)
	machine := NewStatusMachine(taskRepo)
	logger := newTestLogger()

	suite.gateway = NewFakePaymentGateway()
	suite.service = NewOfferService(taskRepo, offerRepo, machine, suite.gateway, NewLogNotifier(logger), 0.10, logger)
}

func (suite *OfferServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *OfferServiceTestSuite) createUser(email string) *models.User {
	user := &models.User{Email: email, DisplayName: email, PasswordHash: "x"}
	suite.db.Create(user)
	return user
}

func (suite *OfferServiceTestSuite) createOpenTask(posterID uint64, budget int64) *models.Task {
	task := &models.Task{
		Title:    "Assemble furniture",
		Status:   models.TaskStatusOpen,
		Budget:   decimal.NewFromInt(budget),
		Currency: "AUD",
		PosterID: posterID,
	}
	suite.db.Create(task)
	return task
}

func (suite *OfferServiceTestSuite) createPendingOffer(task *models.Task, taskerID uint64, amount int64) *models.Offer {
	offer := &models.Offer{
		TaskID:   task.ID,
		PosterID: task.PosterID,
		TaskerID: taskerID,
		Amount:   decimal.NewFromInt(amount),
		Currency: task.Currency,
		Status:   models.OfferStatusPending,
	}
	suite.db.Create(offer)
	return offer
}

func (suite *OfferServiceTestSuite) TestCreateOffer_Success() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)

	offer, err := suite.service.CreateOffer(CreateOfferInput{
		TaskID:   task.ID,
		TaskerID: tasker.ID,
		Amount:   decimal.NewFromInt(90),
		Message:  "  can do it tomorrow  ",
	})

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusPending, offer.Status)
	assert.Equal(suite.T(), task.Currency, offer.Currency)
	assert.Equal(suite.T(), poster.ID, offer.PosterID)
	assert.Equal(suite.T(), "can do it tomorrow", offer.Message)
}

func (suite *OfferServiceTestSuite) TestCreateOffer_InvalidAmount() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)

	_, err := suite.service.CreateOffer(CreateOfferInput{
		TaskID:   task.ID,
		TaskerID: tasker.ID,
		Amount:   decimal.Zero,
	})

	assert.ErrorIs(suite.T(), err, ErrOfferAmountInvalid)
}

func (suite *OfferServiceTestSuite) TestCreateOffer_OwnTask() {
	poster := suite.createUser("poster@example.com")
	task := suite.createOpenTask(poster.ID, 100)

	_, err := suite.service.CreateOffer(CreateOfferInput{
		TaskID:   task.ID,
		TaskerID: poster.ID,
		Amount:   decimal.NewFromInt(80),
	})

	assert.ErrorIs(suite.T(), err, ErrOwnTaskOffer)
}

func (suite *OfferServiceTestSuite) TestCreateOffer_TaskNotOpen() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	suite.db.Model(task).Update("status", models.TaskStatusTodo)

	_, err := suite.service.CreateOffer(CreateOfferInput{
		TaskID:   task.ID,
		TaskerID: tasker.ID,
		Amount:   decimal.NewFromInt(80),
	})

	assert.ErrorIs(suite.T(), err, ErrTaskNotAccepting)
}

func (suite *OfferServiceTestSuite) TestListOffers_PosterSeesAll() {
	poster := suite.createUser("poster@example.com")
	taskerA := suite.createUser("a@example.com")
	taskerB := suite.createUser("b@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	suite.createPendingOffer(task, taskerA.ID, 90)
	suite.createPendingOffer(task, taskerB.ID, 95)

	offers, err := suite.service.ListOffers(task.ID, poster.ID)

	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), offers, 2)
}

func (suite *OfferServiceTestSuite) TestListOffers_TaskerSeesOwnOnly() {
	poster := suite.createUser("poster@example.com")
	taskerA := suite.createUser("a@example.com")
	taskerB := suite.createUser("b@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	suite.createPendingOffer(task, taskerA.ID, 90)
	suite.createPendingOffer(task, taskerB.ID, 95)

	offers, err := suite.service.ListOffers(task.ID, taskerA.ID)

	assert.NoError(suite.T(), err)
	suite.Require().Len(offers, 1)
	assert.Equal(suite.T(), taskerA.ID, offers[0].TaskerID)
}

func (suite *OfferServiceTestSuite) TestWithdrawOffer_Success() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(task, tasker.ID, 90)

	withdrawn, err := suite.service.WithdrawOffer(offer.ID, tasker.ID)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OfferStatusWithdrawn, withdrawn.Status)
}

func (suite *OfferServiceTestSuite) TestWithdrawOffer_NotOwner() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(task, tasker.ID, 90)

	_, err := suite.service.WithdrawOffer(offer.ID, poster.ID)

	assert.ErrorIs(suite.T(), err, ErrNotOfferOwner)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_Success() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	rival := suite.createUser("rival@example.com")
	task := suite.createOpenTask(poster.ID, 1000)
	offer := suite.createPendingOffer(task, tasker.ID, 900)
	rivalOffer := suite.createPendingOffer(task, rival.ID, 950)

	acceptedTask, acceptedOffer, err := suite.service.AcceptOffer(context.Background(), task.ID, offer.ID, poster.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.TaskStatusTodo, acceptedTask.Status)
	suite.Require().NotNil(acceptedTask.AssignedTo)
	assert.Equal(suite.T(), tasker.ID, *acceptedTask.AssignedTo)
	assert.Equal(suite.T(), models.OfferStatusAccepted, acceptedOffer.Status)

	var storedRival models.Offer
	suite.db.First(&storedRival, rivalOffer.ID)
	assert.Equal(suite.T(), models.OfferStatusRejected, storedRival.Status)

	var payment models.Payment
	suite.Require().NoError(suite.db.Where("task_id = ?", task.ID).First(&payment).Error)
	assert.Equal(suite.T(), models.PaymentStatusPending, payment.Status)
	assert.True(suite.T(), payment.Amount.Equal(decimal.NewFromInt(900)))
	assert.True(suite.T(), payment.ServiceFee.Equal(decimal.NewFromInt(90)))
	assert.True(suite.T(), payment.TaskerAmount.Equal(decimal.NewFromInt(810)))
	assert.NotEmpty(suite.T(), payment.IntentRef)

	var ledger models.Transaction
	suite.Require().NoError(suite.db.Where("task_id = ?", task.ID).First(&ledger).Error)
	assert.Equal(suite.T(), models.TransactionTypeEscrowHold, ledger.Type)
	assert.Equal(suite.T(), models.TransactionStatusPending, ledger.Status)
	assert.True(suite.T(), ledger.Amount.Equal(decimal.NewFromInt(900)))

	var changes []models.TaskStatusChange
	suite.db.Where("task_id = ?", task.ID).Find(&changes)
	suite.Require().Len(changes, 1)
	assert.Equal(suite.T(), models.TaskStatusTodo, changes[0].Status)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_NotPoster() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(task, tasker.ID, 90)

	_, _, err := suite.service.AcceptOffer(context.Background(), task.ID, offer.ID, tasker.ID)

	assert.ErrorIs(suite.T(), err, ErrNotTaskPoster)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_TaskMismatch() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	taskA := suite.createOpenTask(poster.ID, 100)
	taskB := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(taskA, tasker.ID, 90)

	_, _, err := suite.service.AcceptOffer(context.Background(), taskB.ID, offer.ID, poster.ID)

	assert.ErrorIs(suite.T(), err, ErrOfferTaskMismatch)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_TaskNotOpen() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(task, tasker.ID, 90)
	suite.db.Model(task).Update("status", models.TaskStatusCancelled)

	_, _, err := suite.service.AcceptOffer(context.Background(), task.ID, offer.ID, poster.ID)

	assert.ErrorIs(suite.T(), err, ErrTaskNotAccepting)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_OfferNotPending() {
	poster := suite.createUser("poster@example.com")
	tasker := suite.createUser("tasker@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offer := suite.createPendingOffer(task, tasker.ID, 90)
	suite.db.Model(offer).Update("status", models.OfferStatusWithdrawn)

	_, _, err := suite.service.AcceptOffer(context.Background(), task.ID, offer.ID, poster.ID)

	assert.ErrorIs(suite.T(), err, ErrOfferNotAcceptable)
}

func (suite *OfferServiceTestSuite) TestAcceptOffer_SecondAcceptanceConflicts() {
	poster := suite.createUser("poster@example.com")
	taskerA := suite.createUser("a@example.com")
	taskerB := suite.createUser("b@example.com")
	task := suite.createOpenTask(poster.ID, 100)
	offerA := suite.createPendingOffer(task, taskerA.ID, 90)
	offerB := suite.createPendingOffer(task, taskerB.ID, 95)

	_, _, err := suite.service.AcceptOffer(context.Background(), task.ID, offerA.ID, poster.ID)
	suite.Require().NoError(err)

	_, _, err = suite.service.AcceptOffer(context.Background(), task.ID, offerB.ID, poster.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskNotAccepting)

	// One payment and one escrow hold, from the first acceptance only.
	var paymentCount, ledgerCount int64
	suite.db.Model(&models.Payment{}).Where("task_id = ?", task.ID).Count(&paymentCount)
	suite.db.Model(&models.Transaction{}).Where("task_id = ?", task.ID).Count(&ledgerCount)
	assert.Equal(suite.T(), int64(1), paymentCount)
	assert.Equal(suite.T(), int64(1), ledgerCount)
}

func TestOfferServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OfferServiceTestSuite))
}
