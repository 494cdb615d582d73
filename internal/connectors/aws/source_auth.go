package aws

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/finops-claw-gang/eventcheck-go/internal/ratelimit"
)

var (
	roleARNRe    = regexp.MustCompile(`^arn:aws:iam::\d{12}:role/.+$`)
	sourceNameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)
)

// ValidateRoleARN checks that the ARN looks like a valid IAM role ARN.
func ValidateRoleARN(arn string) error {
	if !roleARNRe.MatchString(arn) {
		return fmt.Errorf("invalid IAM role ARN: %q", arn)
	}
	return nil
}

type cachedConfig struct {
	cfg       aws.Config
	expiresAt time.Time
}

// SourceConfigProvider caches assumed-role AWS configs for event sources that
// live in other accounts. Sessions are refreshed 5 minutes before STS expiry.
type SourceConfigProvider struct {
	baseRegion  string
	baseProfile string

	mu    sync.RWMutex
	cache map[string]*cachedConfig

	sessionDuration time.Duration
	refreshBefore   time.Duration
	limiter         *ratelimit.ServiceLimiter

	now func() time.Time
}

// NewSourceConfigProvider creates a provider with the given base AWS config.
func NewSourceConfigProvider(region, profile string) *SourceConfigProvider {
	return &SourceConfigProvider{
		baseRegion:      region,
		baseProfile:     profile,
		cache:           make(map[string]*cachedConfig),
		sessionDuration: time.Hour,
		refreshBefore:   5 * time.Minute,
		now:             time.Now,
	}
}

func cacheKey(source, roleARN string) string {
	return source + "|" + roleARN
}

// WithLimiter throttles new assumed-role sessions through l.
func (p *SourceConfigProvider) WithLimiter(l *ratelimit.ServiceLimiter) *SourceConfigProvider {
	p.limiter = l
	return p
}

// ForSource returns an AWS config with credentials assumed from roleARN. The
// source name becomes part of the STS session name so CloudTrail shows which
// event source a read belonged to.
func (p *SourceConfigProvider) ForSource(ctx context.Context, source, roleARN, region string) (aws.Config, error) {
	if !sourceNameRe.MatchString(source) {
		return aws.Config{}, fmt.Errorf("invalid source name: %q", source)
	}
	if err := ValidateRoleARN(roleARN); err != nil {
		return aws.Config{}, err
	}

	key := cacheKey(source, roleARN)

	p.mu.RLock()
	if cached, ok := p.cache[key]; ok && p.now().Before(cached.expiresAt.Add(-p.refreshBefore)) {
		cfg := cached.cfg
		p.mu.RUnlock()
		if region != "" {
			cfg.Region = region
		}
		return cfg, nil
	}
	p.mu.RUnlock()

	r := p.baseRegion
	if region != "" {
		r = region
	}

	if err := p.limiter.Wait(ctx, ratelimit.ServiceSTS); err != nil {
		return aws.Config{}, err
	}

	cfg, err := p.assumeRole(ctx, roleARN, source, r)
	if err != nil {
		return aws.Config{}, fmt.Errorf("assume role for source %s: %w", source, err)
	}

	p.mu.Lock()
	p.cache[key] = &cachedConfig{
		cfg:       cfg,
		expiresAt: p.now().Add(p.sessionDuration),
	}
	p.mu.Unlock()

	return cfg, nil
}

func (p *SourceConfigProvider) assumeRole(ctx context.Context, roleARN, source, region string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if p.baseProfile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(p.baseProfile))
	}

	baseCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load base config: %w", err)
	}

	stsClient := sts.NewFromConfig(baseCfg)
	baseCfg.Credentials = stscreds.NewAssumeRoleProvider(stsClient, roleARN,
		func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = "eventcheck-" + source
			o.Duration = p.sessionDuration
		},
	)

	return baseCfg, nil
}
