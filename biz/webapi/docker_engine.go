package webapi

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"harbormon/collector-service/biz/domain"
	"harbormon/collector-service/config"
)

// One stats line per container: id, cpu%, "used / limit", mem%, "in / out",
// "read / write". This is the runtime CLI's own tabular rendering; the
// engine API has no textual stats endpoint, so the stats query shells out
// while listing stays on the SDK.
const statsLineFormat = "{{.ID}} {{.CPUPerc}} {{.MemUsage}} {{.MemPerc}} {{.NetIO}} {{.BlockIO}}"

type DockerEngineAPI struct {
	Cli          *client.Client
	statsTimeout time.Duration
}

func CreateNewDockerEngineAPI(cfg *config.Config) *DockerEngineAPI {
	apiclient, err := client.NewClientWithOpts(client.WithHost(cfg.Docker.Host), client.WithAPIVersionNegotiation())
	if err != nil {
		hlog.Fatal("client.NewClientWithOpts ", err)
	}

	return &DockerEngineAPI{Cli: apiclient, statsTimeout: cfg.Docker.StatsTimeout}
}

// ListContainers returns every container the runtime knows about, running
// or stopped, in a single pass.
func (d *DockerEngineAPI) ListContainers(ctx context.Context) ([]domain.RuntimeContainer, error) {
	ctrs, err := d.Cli.ContainerList(ctx, container.ListOptions{All: true})
	if err != nil {
		return nil, domain.WrapErrorf(err, domain.ErrInternalServerError, "d.Cli.ContainerList")
	}

	res := make([]domain.RuntimeContainer, 0, len(ctrs))
	for _, c := range ctrs {
		name := c.ID
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		res = append(res, domain.RuntimeContainer{
			RuntimeID: c.ID,
			Name:      name,
			Image:     c.Image,
			RawStatus: c.Status,
			Ports:     serializePorts(c.Ports),
			Running:   strings.Contains(strings.ToLower(c.State), "running"),
			CreatedAt: time.Unix(c.Created, 0).UTC(),
		})
	}
	return res, nil
}

// ContainerStatsLine runs a one-shot stats query and returns the raw line.
// Empty output means the container stopped between list and stats; callers
// treat that as "no sample this cycle".
func (d *DockerEngineAPI) ContainerStatsLine(ctx context.Context, runtimeID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.statsTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "docker", "stats", "--no-stream", "--format", statsLineFormat, runtimeID).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && strings.Contains(strings.ToLower(string(ee.Stderr)), "no such container") {
			return "", nil
		}
		return "", domain.WrapErrorf(err, domain.ErrInternalServerError, "docker stats %s", runtimeID)
	}
	return strings.TrimSpace(string(out)), nil
}

func (d *DockerEngineAPI) Ping(ctx context.Context) error {
	_, err := d.Cli.Ping(ctx)
	return err
}

func serializePorts(ports []types.Port) string {
	if len(ports) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.PublicPort > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d->%d/%s", p.IP, p.PublicPort, p.PrivatePort, p.Type))
		} else {
			parts = append(parts, fmt.Sprintf("%d/%s", p.PrivatePort, p.Type))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
