package di

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/harborops/stackpilot/internal/dao/lockdao"
	"github.com/harborops/stackpilot/internal/dao/releasedao"
	"github.com/harborops/stackpilot/internal/promote"
	"github.com/harborops/stackpilot/internal/services"
	"github.com/harborops/stackpilot/internal/stack"
)

func ProvideReleaseDAO(client *dynamodb.Client, config *services.Config) *releasedao.DAO {
	return releasedao.New(client, config.ReleaseTable)
}

func ProvideLockDAO(client *dynamodb.Client, config *services.Config) *lockdao.DAO {
	return lockdao.New(client, config.LockTable)
}

func ProvidePromoter(releases *releasedao.DAO, artifacts *services.ArtifactStore, engine *stack.Engine, secrets *services.SecretResolver, config *services.Config) *promote.Promoter {
	return promote.New(releases, artifacts, engine, secrets, config.EnvLadder)
}
