package inmemdb

import (
	"context"
	"sort"

	"github.com/cursohub/cursohub/core/material"
)

type materialRepository struct {
	materials *materialTable
}

func NewMaterialRepository(db *DB) material.Repository {
	return &materialRepository{materials: db.material}
}

func (repo *materialRepository) CreateMaterial(ctx context.Context, mat material.Material) (material.Material, error) {
	repo.materials.mutex.Lock()
	defer repo.materials.mutex.Unlock()

	repo.materials.table[mat.ID] = &mat
	return mat, nil
}

func (repo *materialRepository) GetMaterialByID(ctx context.Context, id string) (material.Material, error) {
	repo.materials.mutex.RLock()
	defer repo.materials.mutex.RUnlock()

	if mat, ok := repo.materials.table[id]; ok {
		return *mat, nil
	}
	return material.Material{}, material.ErrNotFound
}

func (repo *materialRepository) queryBy(match func(material.Material) bool) []material.Material {
	materials := make([]material.Material, 0)
	for _, mat := range repo.materials.table {
		if match(*mat) {
			materials = append(materials, *mat)
		}
	}
	sort.Slice(materials, func(i, j int) bool {
		return materials[i].CreatedAt.Before(materials[j].CreatedAt)
	})
	return materials
}

func (repo *materialRepository) QueryMaterialsByVideo(ctx context.Context, videoID string) ([]material.Material, error) {
	repo.materials.mutex.RLock()
	defer repo.materials.mutex.RUnlock()
	return repo.queryBy(func(mat material.Material) bool { return mat.VideoID == videoID }), nil
}

func (repo *materialRepository) QueryMaterialsByPlaylist(ctx context.Context, playlistID string) ([]material.Material, error) {
	repo.materials.mutex.RLock()
	defer repo.materials.mutex.RUnlock()
	return repo.queryBy(func(mat material.Material) bool { return mat.PlaylistID == playlistID }), nil
}

func (repo *materialRepository) QueryMaterialsByRoom(ctx context.Context, roomID string) ([]material.Material, error) {
	repo.materials.mutex.RLock()
	defer repo.materials.mutex.RUnlock()
	return repo.queryBy(func(mat material.Material) bool { return mat.RoomID == roomID }), nil
}

func (repo *materialRepository) DeleteMaterialsByID(ctx context.Context, ids ...string) error {
	repo.materials.mutex.Lock()
	defer repo.materials.mutex.Unlock()
	for _, id := range ids {
		delete(repo.materials.table, id)
	}
	return nil
}

func (repo *materialRepository) deleteBy(match func(material.Material) bool) {
	for id, mat := range repo.materials.table {
		if match(*mat) {
			delete(repo.materials.table, id)
		}
	}
}

func (repo *materialRepository) DeleteMaterialsByVideoIDs(ctx context.Context, videoIDs ...string) error {
	repo.materials.mutex.Lock()
	defer repo.materials.mutex.Unlock()

	wanted := idSet(videoIDs)
	repo.deleteBy(func(mat material.Material) bool { return mat.VideoID != "" && wanted[mat.VideoID] })
	return nil
}

func (repo *materialRepository) DeleteMaterialsByPlaylistIDs(ctx context.Context, playlistIDs ...string) error {
	repo.materials.mutex.Lock()
	defer repo.materials.mutex.Unlock()

	wanted := idSet(playlistIDs)
	repo.deleteBy(func(mat material.Material) bool { return mat.PlaylistID != "" && wanted[mat.PlaylistID] })
	return nil
}

func (repo *materialRepository) DeleteMaterialsByRoomIDs(ctx context.Context, roomIDs ...string) error {
	repo.materials.mutex.Lock()
	defer repo.materials.mutex.Unlock()

	wanted := idSet(roomIDs)
	repo.deleteBy(func(mat material.Material) bool { return mat.RoomID != "" && wanted[mat.RoomID] })
	return nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
