package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateBoard inserts a new board owned by the given user.
func (service *Service) CreateBoard(ctx context.Context, board Board) (Board, error) {
	if _, err := NewBoardID(board.BoardID); err != nil {
		service.logError(opCreateBoard, reasonInvalidIdentifier, err, zap.String(fieldBoardID, board.BoardID))
		return Board{}, newServiceError(opCreateBoard, reasonInvalidIdentifier, err)
	}
	if _, err := NewUserID(board.OwnerID); err != nil {
		service.logError(opCreateBoard, reasonInvalidIdentifier, err, zap.String(fieldUserID, board.OwnerID))
		return Board{}, newServiceError(opCreateBoard, reasonInvalidIdentifier, err)
	}

	nowSeconds := service.clock().UTC().Unix()
	board.CreatedAtSeconds = nowSeconds
	board.UpdatedAtSeconds = nowSeconds

	if err := service.db.WithContext(ctx).Create(&board).Error; err != nil {
		service.logError(opCreateBoard, reasonInsertFailed, err, zap.String(fieldBoardID, board.BoardID))
		return Board{}, newServiceError(opCreateBoard, reasonInsertFailed, err)
	}
	return board, nil
}

// ListBoards returns the boards owned by the given user, most recently
// updated first.
func (service *Service) ListBoards(ctx context.Context, ownerID string) ([]Board, error) {
	if _, err := NewUserID(ownerID); err != nil {
		service.logError(opListBoards, reasonInvalidIdentifier, err, zap.String(fieldUserID, ownerID))
		return nil, newServiceError(opListBoards, reasonInvalidIdentifier, err)
	}

	var boards []Board
	if err := service.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("updated_at_s DESC").
		Find(&boards).Error; err != nil {
		service.logError(opListBoards, reasonQueryFailed, err, zap.String(fieldUserID, ownerID))
		return nil, newServiceError(opListBoards, reasonQueryFailed, err)
	}
	return boards, nil
}

// DeleteBoard removes a board and all of its object records. Board
// removal is permanent, unlike object deletion.
func (service *Service) DeleteBoard(ctx context.Context, boardID, ownerID string) error {
	if _, err := NewBoardID(boardID); err != nil {
		service.logError(opDeleteBoard, reasonInvalidIdentifier, err, zap.String(fieldBoardID, boardID))
		return newServiceError(opDeleteBoard, reasonInvalidIdentifier, err)
	}
	if _, err := NewUserID(ownerID); err != nil {
		service.logError(opDeleteBoard, reasonInvalidIdentifier, err, zap.String(fieldUserID, ownerID))
		return newServiceError(opDeleteBoard, reasonInvalidIdentifier, err)
	}

	return service.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var board Board
		err := tx.Where("board_id = ? AND owner_id = ?", boardID, ownerID).Take(&board).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opDeleteBoard, reasonBoardNotFound, ErrBoardNotFound)
		}
		if err != nil {
			service.logError(opDeleteBoard, reasonSelectFailed, err, zap.String(fieldBoardID, boardID))
			return newServiceError(opDeleteBoard, reasonSelectFailed, err)
		}
		if err := tx.Where("board_id = ?", boardID).Delete(&Object{}).Error; err != nil {
			service.logError(opDeleteBoard, reasonObjectDeleteFailed, err, zap.String(fieldBoardID, boardID))
			return newServiceError(opDeleteBoard, reasonObjectDeleteFailed, err)
		}
		if err := tx.Delete(&board).Error; err != nil {
			service.logError(opDeleteBoard, reasonQueryFailed, err, zap.String(fieldBoardID, boardID))
			return newServiceError(opDeleteBoard, reasonQueryFailed, err)
		}
		return nil
	})
}
